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
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("HealthChecker", func() {
	var (
		healthChecker *HealthChecker
		engine        *gin.Engine
	)

	BeforeEach(func() {
		healthChecker = NewHealthChecker()
		engine = gin.New()
		engine.GET("/healthz", healthChecker.HealthzHandler)
		engine.GET("/readyz", healthChecker.ReadyzHandler)
	})

	Describe("HealthzHandler", func() {
		It("should report healthy by default", func() {
			recorder := performRequest(engine, http.MethodGet, "/healthz", nil)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var response map[string]interface{}
			Expect(parseJSONResponse(recorder, &response)).To(Succeed())
			Expect(response["status"]).To(Equal("healthy"))
			Expect(response).To(HaveKey("uptime"))
		})

		It("should report unhealthy until cleared", func() {
			healthChecker.SetUnhealthy("database gone")

			recorder := performRequest(engine, http.MethodGet, "/healthz", nil)
			Expect(recorder.Code).To(Equal(http.StatusServiceUnavailable))

			var response map[string]interface{}
			Expect(parseJSONResponse(recorder, &response)).To(Succeed())
			Expect(response["reason"]).To(Equal("database gone"))

			healthChecker.ClearUnhealthy()
			recorder = performRequest(engine, http.MethodGet, "/healthz", nil)
			Expect(recorder.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("ReadyzHandler", func() {
		It("should be ready when every check passes", func() {
			healthChecker.AddReadinessCheck("search", func(context.Context) error { return nil })

			recorder := performRequest(engine, http.MethodGet, "/readyz", nil)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var response struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			Expect(parseJSONResponse(recorder, &response)).To(Succeed())
			Expect(response.Status).To(Equal("ready"))
			Expect(response.Checks).To(HaveKeyWithValue("search", "ok"))
		})

		It("should report the failing check", func() {
			healthChecker.AddReadinessCheck("search", func(context.Context) error { return nil })
			healthChecker.AddReadinessCheck("database", func(context.Context) error {
				return errors.New("connection refused")
			})

			recorder := performRequest(engine, http.MethodGet, "/readyz", nil)
			Expect(recorder.Code).To(Equal(http.StatusServiceUnavailable))

			var response struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			Expect(parseJSONResponse(recorder, &response)).To(Succeed())
			Expect(response.Status).To(Equal("not ready"))
			Expect(response.Checks).To(HaveKeyWithValue("database", "failed: connection refused"))
			Expect(response.Checks).To(HaveKeyWithValue("search", "ok"))
		})

		It("should honour a manual not-ready flag", func() {
			healthChecker.SetNotReady("warming caches")

			recorder := performRequest(engine, http.MethodGet, "/readyz", nil)
			Expect(recorder.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(recorder.Body.String()).To(ContainSubstring("warming caches"))

			healthChecker.ClearNotReady()
			recorder = performRequest(engine, http.MethodGet, "/readyz", nil)
			Expect(recorder.Code).To(Equal(http.StatusOK))
		})
	})
})

var _ = Describe("MetricsServer", func() {
	var (
		deps   Dependencies
		server *Server
	)

	BeforeEach(func() {
		deps = newTestDependencies()
		server = New(testServerConfig(), deps)
	})

	It("should serve Prometheus metrics", func() {
		deps.Collector.ObserveSearch("Solr", 0, nil)

		recorder := performRequest(server.Handler(), http.MethodGet, "/metrics", nil)
		Expect(recorder.Code).To(Equal(http.StatusOK))
		Expect(recorder.Body.String()).To(ContainSubstring("shelfline_search_requests_total"))
		Expect(recorder.Body.String()).To(ContainSubstring("go_goroutines"))
	})

	It("should serve a JSON snapshot", func() {
		recorder := performRequest(server.Handler(), http.MethodGet, "/metrics/snapshot", nil)
		Expect(recorder.Code).To(Equal(http.StatusOK))

		var response map[string]interface{}
		Expect(parseJSONResponse(recorder, &response)).To(Succeed())
		Expect(response).To(HaveKey("metrics"))
		Expect(response).To(HaveKey("scrape"))
	})

	It("should reject duplicate custom metrics", func() {
		metric := newTestCounter()
		Expect(server.Metrics().RegisterCustomMetric("custom", metric)).To(Succeed())
		Expect(server.Metrics().RegisterCustomMetric("custom", metric)).NotTo(Succeed())
		Expect(server.Metrics().UnregisterCustomMetric("custom")).To(Succeed())
		Expect(server.Metrics().UnregisterCustomMetric("custom")).NotTo(Succeed())
	})
})

var _ = Describe("API", func() {
	var (
		deps    Dependencies
		handler http.Handler
	)

	BeforeEach(func() {
		deps = newTestDependencies()
		handler = New(testServerConfig(), deps).Handler()
	})

	It("should tag responses with a request id", func() {
		recorder := performRequest(handler, http.MethodGet, "/healthz", nil)
		Expect(recorder.Header().Get(RequestIDHeader)).NotTo(BeEmpty())

		id := "0b6c6d7e-3b5a-4c1e-9a43-1f0d4a5e6b7c"
		recorder = performRequestWithHeaders(handler, http.MethodGet, "/healthz", nil, map[string]string{RequestIDHeader: id})
		Expect(recorder.Header().Get(RequestIDHeader)).To(Equal(id))
	})

	It("should list services and plugins", func() {
		recorder := performRequest(handler, http.MethodGet, "/api/v1/services", nil)
		Expect(recorder.Code).To(Equal(http.StatusOK))

		var response map[string][]string
		Expect(parseJSONResponse(recorder, &response)).To(Succeed())
		Expect(response["services"]).To(ConsistOf("Tags"))
		Expect(response["auth"]).To(ContainElements("ILS", "MultiAuth", "ChoiceAuth"))
		Expect(response["recommend"]).To(ContainElements("SideFacets", "SwitchQuery", "DPLATerms"))
	})

	It("should list the configured tabs", func() {
		recorder := performRequest(handler, http.MethodGet, "/api/v1/tabs", nil)
		Expect(recorder.Code).To(Equal(http.StatusOK))
		Expect(recorder.Body.String()).To(ContainSubstring("Solr:main"))
	})

	Describe("search", func() {
		It("should run the search and its recommendations", func() {
			query := url.Values{
				"lookfor":   {"cats and dogs"},
				"recommend": {"SwitchQuery", "NoSuchModule"},
			}
			recorder := performRequest(handler, http.MethodGet, "/api/v1/search?"+query.Encode(), nil)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var response SearchResponse
			Expect(parseJSONResponse(recorder, &response)).To(Succeed())
			Expect(response.Backend).To(Equal("Solr"))
			Expect(response.Tab).To(Equal("Solr"))
			Expect(response.Total).To(Equal(2))
			Expect(response.Records).To(HaveLen(2))
			Expect(response.Records[0].Title).To(Equal("cats and dogs"))

			Expect(response.Recommendations).To(HaveLen(2))
			Expect(response.Recommendations[0].Module).To(Equal("SwitchQuery"))
			Expect(response.Recommendations[0].Error).To(BeEmpty())
			Expect(response.Recommendations[0].Data).To(ConsistOf(HaveKeyWithValue("query", "cats AND dogs")))
			Expect(response.Recommendations[1].Module).To(Equal("NoSuchModule"))
			Expect(response.Recommendations[1].Error).NotTo(BeEmpty())
		})

		It("should refuse recommendation specs that are not configured", func() {
			query := url.Values{
				"lookfor":   {"Twain, Mark"},
				"recommend": {"AuthorInfo:169.254.169.254/latest/meta-data#", "SwitchQuery:Solr"},
			}
			recorder := performRequest(handler, http.MethodGet, "/api/v1/search?"+query.Encode(), nil)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var response SearchResponse
			Expect(parseJSONResponse(recorder, &response)).To(Succeed())
			Expect(response.Recommendations).To(HaveLen(2))
			for _, rec := range response.Recommendations {
				Expect(rec.Error).To(Equal(errRecommendationNotEnabled.Error()))
				Expect(rec.Data).To(BeNil())
			}
		})

		It("should run the configured recommendations of the tab by default", func() {
			recorder := performRequest(handler, http.MethodGet, "/api/v1/search?lookfor=x&tab=Solr:main", nil)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var response SearchResponse
			Expect(parseJSONResponse(recorder, &response)).To(Succeed())
			Expect(response.Recommendations).To(HaveLen(1))
			Expect(response.Recommendations[0].Module).To(Equal("TopFacets"))
			Expect(response.Recommendations[0].Error).To(BeEmpty())
		})

		It("should apply the hidden filters of the selected tab", func() {
			recorder := performRequest(handler, http.MethodGet, "/api/v1/search?lookfor=x&tab=Solr:main", nil)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var response SearchResponse
			Expect(parseJSONResponse(recorder, &response)).To(Succeed())
			Expect(response.Tab).To(Equal("Solr:main"))
			Expect(response.Total).To(Equal(1))
		})

		It("should reject an unknown backend", func() {
			recorder := performRequest(handler, http.MethodGet, "/api/v1/search?backend=Primo", nil)
			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(recorder.Body.String()).To(ContainSubstring("UNKNOWN_BACKEND"))
		})
	})

	It("should parse tags", func() {
		recorder := performRequest(handler, http.MethodPost, "/api/v1/tags/parse", map[string]string{
			"input": `"civil war" history history`,
		})
		Expect(recorder.Code).To(Equal(http.StatusOK))

		var response map[string][]string
		Expect(parseJSONResponse(recorder, &response)).To(Succeed())
		Expect(response["tags"]).To(Equal([]string{"civil war", "history"}))
	})

	It("should translate with fallback locales", func() {
		var response map[string]string

		recorder := performRequest(handler, http.MethodGet, "/api/v1/translate/Search", nil)
		Expect(recorder.Code).To(Equal(http.StatusOK))
		Expect(parseJSONResponse(recorder, &response)).To(Succeed())
		Expect(response["message"]).To(Equal("Suche"))
		Expect(response["locale"]).To(Equal("de"))

		recorder = performRequest(handler, http.MethodGet, "/api/v1/translate/Catalog", nil)
		Expect(parseJSONResponse(recorder, &response)).To(Succeed())
		Expect(response["message"]).To(Equal("Catalog"))
	})

	Describe("auth", func() {
		It("should keep the logged-in user in the session", func() {
			recorder := performForm(handler, "/api/v1/auth/login", url.Values{
				"username": {"jdoe"},
				"password": {"secret"},
			}, nil)
			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Body.String()).NotTo(ContainSubstring("secret"))

			cookies := recorder.Result().Cookies()
			Expect(cookies).NotTo(BeEmpty())
			Expect(cookies[0].Name).To(Equal("SHELFLINE_SESSION"))

			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "/api/v1/auth/user", http.NoBody)
			Expect(err).NotTo(HaveOccurred())
			req.AddCookie(cookies[0])
			user := httpRecorder(handler, req)
			Expect(user.Code).To(Equal(http.StatusOK))
			Expect(user.Body.String()).To(ContainSubstring(`"username":"jdoe"`))

			logout := performForm(handler, "/api/v1/auth/logout", url.Values{}, cookies)
			Expect(logout.Code).To(Equal(http.StatusNoContent))

			req, err = http.NewRequestWithContext(context.Background(), http.MethodGet, "/api/v1/auth/user", http.NoBody)
			Expect(err).NotTo(HaveOccurred())
			req.AddCookie(cookies[0])
			Expect(httpRecorder(handler, req).Code).To(Equal(http.StatusUnauthorized))
		})

		It("should reject bad credentials", func() {
			recorder := performForm(handler, "/api/v1/auth/login", url.Values{
				"username": {"jdoe"},
				"password": {"nope"},
			}, nil)
			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(recorder.Body.String()).To(ContainSubstring("LOGIN_FAILED"))
		})
	})
})
