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

package recommend

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/search"
)

// ResultsData is what the secondary search modules show
type ResultsData struct {
	Backend string          `json:"backend"`
	Total   int             `json:"total"`
	Records []search.Record `json:"records"`
}

// secondarySearch runs the request's terms against another backend.
// Settings: [request parameter (default "lookfor")]:[limit (default 5)]
type secondarySearch struct {
	lookforModule
	runner  *search.Runner
	backend string
	limit   int
	data    ResultsData
}

func newSecondarySearch(runner *search.Runner, backend string) secondarySearch {
	return secondarySearch{runner: runner, backend: backend, limit: 5, data: ResultsData{Backend: backend, Records: []search.Record{}}}
}

// SetConfig implements Module
func (m *secondarySearch) SetConfig(s string) error {
	parts := parseSettings(s)
	m.param = parts.get(0, "lookfor")
	m.limit = parts.int(1, 5)
	return nil
}

// Init implements Module
func (m *secondarySearch) Init(params *search.Params, request url.Values) error {
	m.initLookfor(params, request)
	return nil
}

// Process implements Module
func (m *secondarySearch) Process(ctx context.Context, _ *search.Results) error {
	if m.lookfor == "" {
		return nil
	}
	results, err := m.runner.Run(ctx, url.Values{"lookfor": {m.lookfor}}, m.backend, func(p *search.Params) {
		p.Limit = m.limit
	})
	if err != nil {
		return err
	}
	m.data = ResultsData{Backend: m.backend, Total: results.Total(), Records: results.Records()}
	return nil
}

// Data implements Module
func (m *secondarySearch) Data() any {
	return m.data
}

// CatalogResults shows catalog hits for the terms of another search
type CatalogResults struct{ secondarySearch }

// NewCatalogResults creates the module
func NewCatalogResults(runner *search.Runner) *CatalogResults {
	return &CatalogResults{newSecondarySearch(runner, "Solr")}
}

// SummonResults shows Summon hits for the terms of another search
type SummonResults struct{ secondarySearch }

// NewSummonResults creates the module
func NewSummonResults(runner *search.Runner) *SummonResults {
	return &SummonResults{newSecondarySearch(runner, "Summon")}
}

// WebResults shows website hits for the terms of another search
type WebResults struct{ secondarySearch }

// NewWebResults creates the module
func NewWebResults(runner *search.Runner) *WebResults {
	return &WebResults{newSecondarySearch(runner, "SolrWeb")}
}

// Suggestion is an alternative query proposed by SwitchQuery
type Suggestion struct {
	Description string `json:"description"`
	Query       string `json:"query"`
}

var (
	lowercaseBool = regexp.MustCompile(`\s(and|or|not)\s`)
	wildcardChars = regexp.MustCompile(`[*?]`)
)

// SwitchQuery suggests fixes for queries that are unlikely to do what the
// user meant.
// Settings: [backend (default "Solr")]:[checks to skip...]
type SwitchQuery struct {
	backends    *search.BackendManager
	backend     string
	skip        []string
	lookfor     string
	suggestions []Suggestion
}

// NewSwitchQuery creates the module
func NewSwitchQuery(backends *search.BackendManager) *SwitchQuery {
	return &SwitchQuery{backends: backends, backend: "Solr"}
}

// SetConfig implements Module
func (m *SwitchQuery) SetConfig(s string) error {
	parts := parseSettings(s)
	m.backend = parts.get(0, "Solr")
	m.skip = parts.from(1)
	return nil
}

// Init implements Module
func (m *SwitchQuery) Init(params *search.Params, request url.Values) error {
	m.lookfor = strings.TrimSpace(request.Get("lookfor"))
	if m.lookfor == "" && params != nil {
		m.lookfor = strings.TrimSpace(params.Lookfor)
	}
	return nil
}

// Process implements Module
func (m *SwitchQuery) Process(_ context.Context, _ *search.Results) error {
	m.suggestions = []Suggestion{}
	if _, err := m.backends.Get(m.backend); err != nil {
		return err
	}
	if m.lookfor == "" {
		return nil
	}

	checks := []struct {
		name  string
		check func(string) (string, string, bool)
	}{
		{"unwantedbools", checkLowercaseBools},
		{"unwantedquotes", checkUnwantedQuotes},
		{"unmatchedquotes", checkUnmatchedQuotes},
		{"wildcard", checkWildcard},
	}
	for _, c := range checks {
		if slices.Contains(m.skip, c.name) {
			continue
		}
		if desc, query, ok := c.check(m.lookfor); ok && query != m.lookfor {
			m.suggestions = append(m.suggestions, Suggestion{Description: desc, Query: query})
		}
	}
	return nil
}

func checkLowercaseBools(q string) (string, string, bool) {
	padded := " " + q + " "
	if !lowercaseBool.MatchString(padded) {
		return "", "", false
	}
	fixed := lowercaseBool.ReplaceAllStringFunc(padded, strings.ToUpper)
	return "switchquery_lowercasebools", strings.TrimSpace(fixed), true
}

func checkUnwantedQuotes(q string) (string, string, bool) {
	if len(q) < 2 || q[0] != '"' || q[len(q)-1] != '"' || strings.Count(q, `"`) != 2 {
		return "", "", false
	}
	return "switchquery_unwantedquotes", strings.TrimSpace(q[1 : len(q)-1]), true
}

func checkUnmatchedQuotes(q string) (string, string, bool) {
	if strings.Count(q, `"`)%2 == 0 {
		return "", "", false
	}
	return "switchquery_unmatchedquotes", strings.ReplaceAll(q, `"`, ""), true
}

func checkWildcard(q string) (string, string, bool) {
	if wildcardChars.MatchString(q) || strings.ContainsAny(q, `"():`) || strings.Contains(q, " ") {
		return "", "", false
	}
	return "switchquery_wildcard", q + "*", true
}

// Data implements Module
func (m *SwitchQuery) Data() any {
	return m.suggestions
}

// RandomRecommend shows random records.
// Settings: [backend (default "Solr")]:[limit (default 10)]:[mode "retain" or "disregard" (default "retain")]:[field:value filter pairs...]
type RandomRecommend struct {
	service *search.Service
	params  *search.ParamsManager
	backend string
	limit   int
	mode    string
	filters []string
	current *search.Params
	records []search.Record
}

// NewRandomRecommend creates the module
func NewRandomRecommend(service *search.Service, params *search.ParamsManager) *RandomRecommend {
	return &RandomRecommend{service: service, params: params, backend: "Solr", limit: 10, mode: "retain"}
}

// SetConfig implements Module
func (m *RandomRecommend) SetConfig(s string) error {
	parts := parseSettings(s)
	m.backend = parts.get(0, "Solr")
	m.limit = parts.int(1, 10)
	m.mode = parts.get(2, "retain")
	if m.mode != "retain" && m.mode != "disregard" {
		return fmt.Errorf("RandomRecommend: unknown mode %q", m.mode)
	}
	m.filters = nil
	pairs := parts.from(3)
	if len(pairs)%2 != 0 {
		return fmt.Errorf("RandomRecommend: filter %q has no value", pairs[len(pairs)-1])
	}
	for i := 0; i < len(pairs); i += 2 {
		m.filters = append(m.filters, pairs[i]+":"+pairs[i+1])
	}
	return nil
}

// Init implements Module
func (m *RandomRecommend) Init(params *search.Params, _ url.Values) error {
	m.current = params
	return nil
}

// Process implements Module
func (m *RandomRecommend) Process(ctx context.Context, _ *search.Results) error {
	p, err := m.params.Get(m.backend)
	if err != nil {
		return err
	}
	if m.mode == "retain" && m.current != nil {
		p.Lookfor = m.current.Lookfor
		p.Handler = m.current.Handler
		for field, values := range m.current.Filters() {
			for _, v := range values {
				p.AddFilter(field + ":" + v)
			}
		}
	}
	for _, f := range m.filters {
		p.AddHiddenFilter(f)
	}

	collection, err := m.service.Random(ctx, m.backend, p.Query(), m.limit)
	if err != nil {
		return err
	}
	m.records = collection.Records
	return nil
}

// Data implements Module
func (m *RandomRecommend) Data() any {
	if m.records == nil {
		return []search.Record{}
	}
	return m.records
}

// AuthorityRecommend shows authority records for the searched heading.
// Settings: [backend (default "SolrAuth")]:[field|value hidden filters...]
type AuthorityRecommend struct {
	lookforModule
	results *search.ResultsManager
	backend string
	filters []string
	records []search.Record
}

// NewAuthorityRecommend creates the module
func NewAuthorityRecommend(results *search.ResultsManager) *AuthorityRecommend {
	return &AuthorityRecommend{results: results, backend: "SolrAuth"}
}

// SetConfig implements Module
func (m *AuthorityRecommend) SetConfig(s string) error {
	parts := parseSettings(s)
	m.backend = parts.get(0, "SolrAuth")
	m.filters = nil
	for _, pair := range parts.from(1) {
		field, value, ok := strings.Cut(pair, "|")
		if !ok {
			return fmt.Errorf("AuthorityRecommend: filter %q is not field|value", pair)
		}
		m.filters = append(m.filters, field+":"+value)
	}
	return nil
}

// Init implements Module
func (m *AuthorityRecommend) Init(params *search.Params, request url.Values) error {
	m.initLookfor(params, request)
	return nil
}

// Process implements Module
func (m *AuthorityRecommend) Process(ctx context.Context, _ *search.Results) error {
	m.records = []search.Record{}
	if m.lookfor == "" {
		return nil
	}
	authority, err := m.results.Get(m.backend)
	if err != nil {
		return err
	}
	p := authority.Params()
	p.Lookfor = m.lookfor
	p.Handler = "Heading"
	p.Limit = 5
	for _, f := range m.filters {
		p.AddHiddenFilter(f)
	}
	if err := authority.PerformAndProcessSearch(ctx); err != nil {
		return err
	}
	m.records = authority.Records()
	return nil
}

// Data implements Module
func (m *AuthorityRecommend) Data() any {
	return m.records
}

// MapSelectionData is what MapSelection shows
type MapSelectionData struct {
	GeoField            string      `json:"geoField"`
	DefaultCoordinates  []float64   `json:"defaultCoordinates"`
	SelectedCoordinates []float64   `json:"selectedCoordinates,omitempty"`
	Height              int         `json:"height"`
	Markers             []MapMarker `json:"markers"`
}

// MapMarker is a geo-tagged hit
type MapMarker struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Coordinates string `json:"coordinates"`
}

var envelopePattern = regexp.MustCompile(`ENVELOPE\(([^)]*)\)`)

// MapSelection shows the selected bounding box and the geo-tagged hits of
// the current search.
// Settings: [marker limit (default 100)]
type MapSelection struct {
	backend search.Backend
	config  config.MapSelectionConfig
	limit   int
	params  *search.Params
	data    MapSelectionData
}

// NewMapSelection creates the module
func NewMapSelection(cfg config.MapSelectionConfig, backend search.Backend) *MapSelection {
	if cfg.GeoField == "" {
		cfg.GeoField = "long_lat"
	}
	return &MapSelection{backend: backend, config: cfg, limit: 100}
}

// SetConfig implements Module
func (m *MapSelection) SetConfig(s string) error {
	m.limit = parseSettings(s).int(0, 100)
	return nil
}

// Init implements Module
func (m *MapSelection) Init(params *search.Params, _ url.Values) error {
	m.params = params
	return nil
}

// Process implements Module
func (m *MapSelection) Process(ctx context.Context, _ *search.Results) error {
	defaults, err := parseCoordinates(m.config.DefaultCoordinates)
	if err != nil {
		return fmt.Errorf("mapSelection.defaultCoordinates: %w", err)
	}
	m.data = MapSelectionData{
		GeoField:           m.config.GeoField,
		DefaultCoordinates: defaults,
		Height:             m.config.Height,
		Markers:            []MapMarker{},
	}
	if m.params == nil {
		return nil
	}

	for _, value := range m.params.Filters()[m.config.GeoField] {
		if match := envelopePattern.FindStringSubmatch(value); match != nil {
			if coords, err := parseCoordinates(match[1]); err == nil {
				m.data.SelectedCoordinates = coords
			}
		}
	}

	q := m.params.Query()
	q.Offset = 0
	q.Limit = m.limit
	q.Facets = nil
	collection, err := m.backend.Search(ctx, q)
	if err != nil {
		return err
	}
	for _, record := range collection.Records {
		value, ok := record.Field(m.config.GeoField)
		if !ok {
			continue
		}
		m.data.Markers = append(m.data.Markers, MapMarker{ID: record.ID, Title: record.Title, Coordinates: fmt.Sprint(value)})
	}
	return nil
}

// parseCoordinates parses "west, east, north, south"
func parseCoordinates(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("expected 4 coordinates, got %q", s)
	}
	coords := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: %w", p, err)
		}
		coords[i] = v
	}
	return coords, nil
}

// Data implements Module
func (m *MapSelection) Data() any {
	return m.data
}
