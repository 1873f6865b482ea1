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
	"net/url"

	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/search"
)

// FacetData is what the facet modules show
type FacetData struct {
	Facets       []search.FacetList                     `json:"facets"`
	Hierarchical map[string][]*search.HierarchicalFacet `json:"hierarchical,omitempty"`
}

// facetSection requests the fields of one facet section and reads them back
type facetSection struct {
	config  config.FacetsConfig
	section string
	fields  map[string]string
	data    FacetData
}

func (f *facetSection) setSection(name string) {
	f.section = name
	f.fields = make(map[string]string)
	for _, field := range f.config.Section(name) {
		f.fields[field.Field] = field.Label
	}
}

func (f *facetSection) requestFacets(params *search.Params) {
	for _, field := range f.config.Section(f.section) {
		params.AddFacet(field.Field, field.Label)
	}
	if f.config.Limit > 0 {
		params.SetFacetLimit(f.config.Limit)
	}
}

func (f *facetSection) readFacets(results *search.Results) {
	f.data = FacetData{Facets: results.FacetList(f.fields)}
}

// SideFacets lists the facets of a section beside the results, with
// hierarchical fields arranged as trees.
// Settings: [section (default "Results")]
type SideFacets struct {
	facetSection
	helper *search.HierarchicalFacetHelper
}

// NewSideFacets creates the module
func NewSideFacets(cfg config.FacetsConfig, helper *search.HierarchicalFacetHelper) *SideFacets {
	m := &SideFacets{facetSection: facetSection{config: cfg}, helper: helper}
	m.setSection("Results")
	return m
}

// SetConfig implements Module
func (m *SideFacets) SetConfig(s string) error {
	m.setSection(parseSettings(s).get(0, "Results"))
	return nil
}

// Init implements Module
func (m *SideFacets) Init(params *search.Params, _ url.Values) error {
	m.requestFacets(params)
	return nil
}

// Process implements Module
func (m *SideFacets) Process(_ context.Context, results *search.Results) error {
	m.readFacets(results)
	for _, list := range m.data.Facets {
		if !m.config.IsHierarchical(list.Field) {
			continue
		}
		if m.data.Hierarchical == nil {
			m.data.Hierarchical = make(map[string][]*search.HierarchicalFacet)
		}
		m.data.Hierarchical[list.Field] = m.helper.BuildTree(list.List)
	}
	return nil
}

// Data implements Module
func (m *SideFacets) Data() any {
	return m.data
}

// CollectionSideFacets is SideFacets for a collection page, which also
// offers a keyword filter within the collection.
// Settings: [section (default "Results")]
type CollectionSideFacets struct {
	*SideFacets
	keyword string
}

// CollectionFacetData adds the collection keyword to FacetData
type CollectionFacetData struct {
	FacetData
	Keyword string `json:"keyword"`
}

// NewCollectionSideFacets creates the module
func NewCollectionSideFacets(cfg config.FacetsConfig, helper *search.HierarchicalFacetHelper) *CollectionSideFacets {
	return &CollectionSideFacets{SideFacets: NewSideFacets(cfg, helper)}
}

// Init implements Module
func (m *CollectionSideFacets) Init(params *search.Params, request url.Values) error {
	m.keyword = request.Get("lookfor")
	return m.SideFacets.Init(params, request)
}

// Data implements Module
func (m *CollectionSideFacets) Data() any {
	return CollectionFacetData{FacetData: m.data, Keyword: m.keyword}
}

// TopFacets lists the facets of a section above the results.
// Settings: [section (default "ResultsTop")]
type TopFacets struct {
	facetSection
}

// NewTopFacets creates the module
func NewTopFacets(cfg config.FacetsConfig) *TopFacets {
	m := &TopFacets{facetSection: facetSection{config: cfg}}
	m.setSection("ResultsTop")
	return m
}

// SetConfig implements Module
func (m *TopFacets) SetConfig(s string) error {
	m.setSection(parseSettings(s).get(0, "ResultsTop"))
	return nil
}

// Init implements Module
func (m *TopFacets) Init(params *search.Params, _ url.Values) error {
	m.requestFacets(params)
	return nil
}

// Process implements Module
func (m *TopFacets) Process(_ context.Context, results *search.Results) error {
	m.readFacets(results)
	return nil
}

// Data implements Module
func (m *TopFacets) Data() any {
	return m.data
}

// VisualFacets shows the counts of the configured pivot fields.
// Settings: [comma separated pivot fields]
type VisualFacets struct {
	fields []string
	data   FacetData
}

// NewVisualFacets creates the module
func NewVisualFacets(cfg config.FacetsConfig) *VisualFacets {
	fields := cfg.Visual
	if len(fields) == 0 {
		fields = []string{"callnumber-first", "topic_facet"}
	}
	return &VisualFacets{fields: fields}
}

// SetConfig implements Module
func (m *VisualFacets) SetConfig(s string) error {
	if pivot := parseSettings(s).get(0, ""); pivot != "" {
		m.fields = splitComma(pivot)
	}
	return nil
}

// Fields returns the pivot fields
func (m *VisualFacets) Fields() []string {
	return m.fields
}

// Init implements Module
func (m *VisualFacets) Init(params *search.Params, _ url.Values) error {
	for _, f := range m.fields {
		params.AddFacet(f, "")
	}
	return nil
}

// Process implements Module
func (m *VisualFacets) Process(_ context.Context, results *search.Results) error {
	fields := make(map[string]string, len(m.fields))
	for _, f := range m.fields {
		fields[f] = ""
	}
	m.data = FacetData{Facets: results.FacetList(fields)}
	return nil
}

// Data implements Module
func (m *VisualFacets) Data() any {
	return m.data
}

// ExpandFacets lists facet values with the query that searches for each
// value on its own, built from an empty results object.
// Settings: [section (default "Results")]
type ExpandFacets struct {
	facetSection
	empty *search.Results
	links map[string]map[string]string
}

// ExpandFacetData adds per-value search links to FacetData
type ExpandFacetData struct {
	FacetData
	Links map[string]map[string]string `json:"links"`
}

// NewExpandFacets creates the module
func NewExpandFacets(cfg config.FacetsConfig, empty *search.Results) *ExpandFacets {
	m := &ExpandFacets{facetSection: facetSection{config: cfg}, empty: empty}
	m.setSection("Results")
	return m
}

// SetConfig implements Module
func (m *ExpandFacets) SetConfig(s string) error {
	m.setSection(parseSettings(s).get(0, "Results"))
	return nil
}

// Init implements Module
func (m *ExpandFacets) Init(params *search.Params, _ url.Values) error {
	m.requestFacets(params)
	return nil
}

// Process implements Module
func (m *ExpandFacets) Process(_ context.Context, results *search.Results) error {
	m.readFacets(results)
	m.links = make(map[string]map[string]string)
	for _, list := range m.data.Facets {
		values := make(map[string]string, len(list.List))
		for _, item := range list.List {
			p := m.empty.Params().Clone()
			p.AddFilter(list.Field + ":" + item.Value)
			values[item.Value] = "?" + p.URLValues().Encode()
		}
		m.links[list.Field] = values
	}
	return nil
}

// Data implements Module
func (m *ExpandFacets) Data() any {
	return ExpandFacetData{FacetData: m.data, Links: m.links}
}

// FavoriteFacets is SideFacets for a user's favorites, adding the tag facet
// when tagging is enabled.
// Settings: [section (default "FavoriteFacets")]
type FavoriteFacets struct {
	*SideFacets
	tagSetting string
}

// NewFavoriteFacets creates the module
func NewFavoriteFacets(cfg config.FacetsConfig, helper *search.HierarchicalFacetHelper, tagSetting string) *FavoriteFacets {
	m := &FavoriteFacets{SideFacets: NewSideFacets(cfg, helper), tagSetting: tagSetting}
	m.setSection("FavoriteFacets")
	return m
}

// SetConfig implements Module
func (m *FavoriteFacets) SetConfig(s string) error {
	m.setSection(parseSettings(s).get(0, "FavoriteFacets"))
	return nil
}

// Init implements Module
func (m *FavoriteFacets) Init(params *search.Params, request url.Values) error {
	if m.tagSetting != "disabled" {
		if _, ok := m.fields["tags"]; !ok {
			m.fields["tags"] = "Your Tags"
		}
		params.AddFacet("tags", "Your Tags")
	}
	return m.SideFacets.Init(params, request)
}

// TagsEnabled reports whether the tag facet is offered
func (m *FavoriteFacets) TagsEnabled() bool {
	return m.tagSetting != "disabled"
}

// AuthorFacets suggests authors similar to the searched name.
// Settings: [limit (default 10)]
type AuthorFacets struct {
	lookforModule
	results *search.ResultsManager
	limit   int
	authors []search.FacetItem
}

// NewAuthorFacets creates the module
func NewAuthorFacets(results *search.ResultsManager) *AuthorFacets {
	return &AuthorFacets{results: results, limit: 10}
}

// SetConfig implements Module
func (m *AuthorFacets) SetConfig(s string) error {
	m.limit = parseSettings(s).int(0, 10)
	return nil
}

// Init implements Module
func (m *AuthorFacets) Init(params *search.Params, request url.Values) error {
	m.initLookfor(params, request)
	return nil
}

// Process implements Module
func (m *AuthorFacets) Process(ctx context.Context, results *search.Results) error {
	m.authors = []search.FacetItem{}
	if m.lookfor == "" {
		return nil
	}

	backend := "Solr"
	if results != nil {
		backend = results.Params().Backend()
	}
	authors, err := m.results.Get(backend)
	if err != nil {
		return err
	}
	p := authors.Params()
	p.Lookfor = m.lookfor
	p.Handler = "Author"
	p.Limit = 0
	p.AddFacet("author_facet", "Author")
	p.SetFacetLimit(m.limit)
	if err := authors.PerformAndProcessSearch(ctx); err != nil {
		return err
	}

	for _, list := range authors.FacetList(nil) {
		m.authors = append(m.authors, list.List...)
	}
	if len(m.authors) > m.limit {
		m.authors = m.authors[:m.limit]
	}
	return nil
}

// Data implements Module
func (m *AuthorFacets) Data() any {
	return m.authors
}
