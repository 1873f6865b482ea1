/*
Copyright 2024 The Shelfline Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package server

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/ahoma/shelfline/pkg/auth"
	"github.com/ahoma/shelfline/pkg/recommend"
	"github.com/ahoma/shelfline/pkg/search"
)

// defaultBackend is searched when the request names none
const defaultBackend = "Solr"

var errRecommendationNotEnabled = errors.New("recommendation module is not enabled for this search")

// Recommendation is the outcome of one recommendation module
type Recommendation struct {
	Module string `json:"module"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SearchResponse is the body returned by the search endpoint
type SearchResponse struct {
	Backend         string                         `json:"backend"`
	Tab             string                         `json:"tab,omitempty"`
	Total           int                            `json:"total"`
	Records         []search.Record                `json:"records"`
	Facets          map[string][]search.FacetValue `json:"facets,omitempty"`
	Recommendations []Recommendation               `json:"recommendations"`
}

type loadedModule struct {
	spec   string
	module recommend.Module
	err    error
}

// servicesHandler lists the registered services and plugins
func (s *Server) servicesHandler(c *gin.Context) {
	response := gin.H{}
	if s.deps.Services != nil {
		response["services"] = s.deps.Services.IDs()
	}
	if s.deps.AuthPlugins != nil {
		response["auth"] = s.deps.AuthPlugins.Names()
	}
	if s.deps.Recommend != nil {
		response["recommend"] = s.deps.Recommend.Names()
	}
	c.JSON(http.StatusOK, response)
}

// tabsHandler lists the search tabs that need no permission
func (s *Server) tabsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tabs": s.deps.Tabs.VisibleTabs(nil)})
}

// searchHandler runs a search. Each "recommend" value selects one of the
// module specs configured for the backend or tab; without any, all of them
// run. Modules are initialized before the search and processed after it, and
// a failing module is reported without failing the search.
func (s *Server) searchHandler(c *gin.Context) {
	ctx := c.Request.Context()
	log := s.deps.Logger.WithContext(ctx)
	request := c.Request.URL.Query()

	backend := c.DefaultQuery("backend", defaultBackend)
	tab := c.Query("tab")
	var hidden []string
	if tab != "" {
		backend = search.ExtractClassName(tab)
		hidden = s.deps.Tabs.FilterConfig()[tab]
	} else {
		hidden = s.deps.Tabs.HiddenFilters(backend)
		tab = s.deps.Tabs.ActiveTab(backend, hidden)
	}

	specs, enabled := s.recommendationSpecs(backend, tab, request["recommend"])
	var modules []loadedModule
	results, err := s.deps.Runner.Run(ctx, request, backend, func(params *search.Params) {
		for _, f := range hidden {
			params.AddHiddenFilter(f)
		}
		for _, spec := range specs {
			if !slices.Contains(enabled, spec) {
				modules = append(modules, loadedModule{spec: spec, err: errRecommendationNotEnabled})
				continue
			}
			module, err := s.deps.Recommend.Load(spec, params, request)
			modules = append(modules, loadedModule{spec: spec, module: module, err: err})
		}
	})
	if err != nil {
		if errors.Is(err, search.ErrBackendNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "UNKNOWN_BACKEND"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "code": "SEARCH_FAILED"})
		return
	}

	response := SearchResponse{
		Backend:         backend,
		Tab:             tab,
		Total:           results.Total(),
		Records:         results.Records(),
		Facets:          results.Collection().FacetFields(),
		Recommendations: make([]Recommendation, 0, len(modules)),
	}
	if response.Records == nil {
		response.Records = []search.Record{}
	}

	for _, m := range modules {
		rec := Recommendation{Module: m.spec}
		err := m.err
		if err == nil {
			err = m.module.Process(ctx, results)
		}
		if err != nil {
			rec.Error = err.Error()
		} else {
			rec.Data = m.module.Data()
		}
		if rec.Error != "" {
			log.Info("Recommendation module failed", "module", m.spec, "error", rec.Error)
		}
		response.Recommendations = append(response.Recommendations, rec)
	}

	c.JSON(http.StatusOK, response)
}

// recommendationSpecs returns the specs to run and the specs configured for
// the tab, or for the backend when the tab has none
func (s *Server) recommendationSpecs(backend, tab string, requested []string) (specs, enabled []string) {
	enabled, ok := s.deps.Recommendations[tab]
	if tab == "" || !ok {
		enabled = s.deps.Recommendations[backend]
	}
	if len(requested) == 0 {
		return enabled, enabled
	}
	return requested, enabled
}

type parseTagsRequest struct {
	Input string `json:"input"`
}

// parseTagsHandler splits free text into tags
func (s *Server) parseTagsHandler(c *gin.Context) {
	var req parseTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_REQUEST"})
		return
	}
	parsed := s.deps.Tags.Parse(req.Input)
	if parsed == nil {
		parsed = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"tags": parsed})
}

// translateHandler translates a single message key
func (s *Server) translateHandler(c *gin.Context) {
	key := c.Param("key")
	c.JSON(http.StatusOK, gin.H{
		"key":     key,
		"locale":  s.deps.Translator.Locale(),
		"message": s.deps.Translator.Translate(key),
	})
}

// loginHandler logs the user in with the configured strategy
func (s *Server) loginHandler(c *gin.Context) {
	user, err := s.deps.Auth.Login(c.Request.Context(), c.Request)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrMethodNotAllowed):
			status = http.StatusUnauthorized
		default:
			_ = c.Error(err)
		}
		c.JSON(status, gin.H{"error": err.Error(), "code": "LOGIN_FAILED"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": publicUser(user)})
}

// logoutHandler forgets the logged-in user
func (s *Server) logoutHandler(c *gin.Context) {
	if err := s.deps.Auth.Logout(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "LOGOUT_FAILED"})
		return
	}
	c.Status(http.StatusNoContent)
}

// userHandler returns the logged-in user
func (s *Server) userHandler(c *gin.Context) {
	user, err := s.deps.Auth.CurrentUser(c.Request.Context())
	if errors.Is(err, auth.ErrNotLoggedIn) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "NOT_LOGGED_IN"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "SESSION_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": publicUser(user)})
}

// publicUser drops the stored catalog password
func publicUser(user *auth.User) auth.User {
	u := *user
	u.CatPassword = ""
	return u
}
