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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/di"
	"github.com/ahoma/shelfline/pkg/httpservice"
	"github.com/ahoma/shelfline/pkg/search"
	"github.com/ahoma/shelfline/pkg/worldcat"
)

var moduleNames = []string{
	"AuthorFacets", "AuthorInfo", "AuthorityRecommend", "CatalogResults",
	"CollectionSideFacets", "DPLATerms", "EuropeanaResults", "ExpandFacets",
	"FavoriteFacets", "MapSelection", "RandomRecommend", "SideFacets",
	"SummonBestBets", "SummonDatabases", "SummonResults", "SummonTopics",
	"SwitchQuery", "TopFacets", "VisualFacets", "WebResults", "WorldCatIdentities",
}

type fakeBackend struct {
	id      string
	mu      sync.Mutex
	queries []search.Query
}

func (b *fakeBackend) Identifier() string { return b.id }

func (b *fakeBackend) Search(_ context.Context, q search.Query) (*search.Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, q)

	c := &search.Collection{
		Backend: b.id,
		Total:   42,
		Offset:  q.Offset,
		Records: []search.Record{},
		Facets: map[string][]search.FacetValue{
			"format":       {{Value: "Book", Count: 30}, {Value: "eBook", Count: 12}},
			"building":     {{Value: "0/Main/", Count: 20}, {Value: "1/Main/Stacks/", Count: 5}},
			"topic_facet":  {{Value: "History", Count: 9}},
			"author_facet": {{Value: "Twain, Mark", Count: 7}, {Value: "Clemens, Samuel", Count: 3}},
			"tags":         {{Value: "favorite", Count: 2}},
		},
	}
	for i := 0; i < q.Limit; i++ {
		r := search.Record{ID: fmt.Sprintf("%s-%d", b.id, i), Title: fmt.Sprintf("Title %d", i), Fields: map[string]any{}}
		if i%2 == 0 {
			r.Fields["long_lat"] = "10 20"
		}
		c.Records = append(c.Records, r)
	}
	if b.id == "Summon" {
		c.BestBets = []search.Link{{Title: "Best", URL: "http://best.example"}}
		c.Databases = []search.Link{{Title: "JSTOR", URL: "http://jstor.example"}}
		c.Topics = []search.Link{{Title: "History", URL: "http://topic.example"}}
	}
	return c, nil
}

func (b *fakeBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queries)
}

func (b *fakeBackend) last() search.Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[len(b.queries)-1]
}

type fixture struct {
	cfg      *config.ShelflineConfig
	backends map[string]*fakeBackend
	results  *search.ResultsManager
	pm       *PluginManager
}

func newFixture(t *testing.T, mutate func(*config.ShelflineConfig)) *fixture {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DPLA.APIKey = "dpla-key"
	if mutate != nil {
		mutate(cfg)
	}

	manager := search.NewBackendManager()
	fakes := make(map[string]*fakeBackend)
	for _, id := range []string{"Solr", "Summon", "SolrWeb", "SolrAuth"} {
		b := &fakeBackend{id: id}
		fakes[id] = b
		manager.Register(b)
	}
	service := search.NewService(search.NewEventManager(), manager, nil)
	params := search.NewParamsManager(manager)
	results := search.NewResultsManager(params, service)

	pm := NewPluginManager(Dependencies{
		Config:             cfg,
		Search:             service,
		Backends:           manager,
		Params:             params,
		Results:            results,
		Runner:             search.NewRunner(results),
		HTTP:               httpservice.NewService(httpservice.Options{}, cfg.HTTP),
		HierarchicalFacets: search.NewHierarchicalFacetHelper("/"),
		Capabilities:       config.NewAccountCapabilities(cfg),
		WorldCat:           worldcat.NewUtils(cfg.WorldCat, http.DefaultClient, false, "", nil),
	})
	return &fixture{cfg: cfg, backends: fakes, results: results, pm: pm}
}

// run searches backend with request and returns the processed module
func (f *fixture) run(t *testing.T, backend, spec string, request url.Values) Module {
	t.Helper()

	results, err := f.results.Get(backend)
	require.NoError(t, err)
	results.Params().InitFromRequest(request)

	module, err := f.pm.Load(spec, results.Params(), request)
	require.NoError(t, err)
	require.NoError(t, results.PerformAndProcessSearch(context.Background()))
	require.NoError(t, module.Process(context.Background(), results))
	return module
}

func TestPluginManagerRegistersEveryModule(t *testing.T) {
	f := newFixture(t, nil)

	assert.ElementsMatch(t, moduleNames, f.pm.Names())
	for _, name := range moduleNames {
		assert.True(t, f.pm.Has(name), name)
		assert.True(t, f.pm.Has(strings.ToLower(name)), name)

		module, err := f.pm.Get(name)
		require.NoError(t, err, name)
		assert.NotNil(t, module)
	}
}

func TestPluginManagerBuildsFreshInstances(t *testing.T) {
	f := newFixture(t, nil)

	a, err := f.pm.Get("SideFacets")
	require.NoError(t, err)
	b, err := f.pm.Get("sidefacets")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestPluginManagerUnknownModule(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.pm.Load("NoSuchModule:x", nil, nil)
	assert.ErrorIs(t, err, di.ErrNotRegistered)
}

func TestDPLATermsRequiresAPIKey(t *testing.T) {
	f := newFixture(t, func(c *config.ShelflineConfig) { c.DPLA.APIKey = "" })

	_, err := f.pm.Get("DPLATerms")
	require.Error(t, err)
	assert.True(t, di.IsConfigurationError(err))

	var cfgErr *di.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "DPLA API key missing from configuration.", cfgErr.Message)
	assert.Equal(t, "dpla.apiKey", cfgErr.Key)

	configured := newFixture(t, nil)
	module, err := configured.pm.Get("DPLATerms")
	require.NoError(t, err)
	assert.Equal(t, "dpla-key", module.(*DPLATerms).APIKey())
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		spec, name, settings string
	}{
		{"SideFacets", "SideFacets", ""},
		{"SideFacets:ResultsTop", "SideFacets", "ResultsTop"},
		{"RandomRecommend:Solr:5:retain:format:Book", "RandomRecommend", "Solr:5:retain:format:Book"},
	}
	for _, tt := range tests {
		name, settings := ParseSpec(tt.spec)
		assert.Equal(t, tt.name, name)
		assert.Equal(t, tt.settings, settings)
	}
}

func TestSideFacets(t *testing.T) {
	f := newFixture(t, func(c *config.ShelflineConfig) {
		c.Facets.Sections["Results"] = append(c.Facets.Sections["Results"], config.FacetField{Field: "building", Label: "Location"})
	})

	module := f.run(t, "Solr", "SideFacets", url.Values{"lookfor": {"history"}, "filter[]": {`format:"Book"`}})
	data := module.Data().(FacetData)

	require.Len(t, data.Facets, 4)
	assert.Equal(t, "format", data.Facets[0].Field)
	assert.True(t, data.Facets[0].List[0].IsApplied)
	assert.False(t, data.Facets[0].List[1].IsApplied)
	assert.Empty(t, data.Facets[2].List)

	tree := data.Hierarchical["building"]
	require.Len(t, tree, 1)
	assert.Equal(t, "Main", tree[0].DisplayText)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Stacks", tree[0].Children[0].DisplayText)

	q := f.backends["Solr"].last()
	assert.Equal(t, []string{"format", "author_facet", "language", "building"}, q.Facets)
	assert.Equal(t, 30, q.FacetLimit)
}

func TestSideFacetsSection(t *testing.T) {
	f := newFixture(t, nil)

	data := f.run(t, "Solr", "SideFacets:ResultsTop", nil).Data().(FacetData)
	require.Len(t, data.Facets, 1)
	assert.Equal(t, "topic_facet", data.Facets[0].Field)
	assert.Nil(t, data.Hierarchical)
}

func TestTopFacets(t *testing.T) {
	f := newFixture(t, nil)

	data := f.run(t, "Solr", "TopFacets", nil).Data().(FacetData)
	require.Len(t, data.Facets, 1)
	assert.Equal(t, "Suggested Topics", data.Facets[0].Label)
	assert.Equal(t, "History", data.Facets[0].List[0].Value)
}

func TestCollectionSideFacets(t *testing.T) {
	f := newFixture(t, nil)

	data := f.run(t, "Solr", "CollectionSideFacets", url.Values{"lookfor": {"maps"}}).Data().(CollectionFacetData)
	assert.Equal(t, "maps", data.Keyword)
	assert.Len(t, data.Facets, 3)
}

func TestVisualFacets(t *testing.T) {
	f := newFixture(t, nil)

	module := f.run(t, "Solr", "VisualFacets:format,topic_facet", nil)
	assert.Equal(t, []string{"format", "topic_facet"}, module.(*VisualFacets).Fields())

	data := module.Data().(FacetData)
	require.Len(t, data.Facets, 2)
	assert.Equal(t, "format", data.Facets[0].Field)
	assert.Equal(t, "topic_facet", data.Facets[1].Field)
}

func TestExpandFacets(t *testing.T) {
	f := newFixture(t, nil)

	data := f.run(t, "Solr", "ExpandFacets", url.Values{"lookfor": {"history"}}).Data().(ExpandFacetData)
	require.Len(t, data.Facets, 3)
	assert.Equal(t, "?filter%5B%5D=format%3A%22Book%22", data.Links["format"]["Book"])
	assert.Equal(t, "?filter%5B%5D=author_facet%3A%22Twain%2C+Mark%22", data.Links["author_facet"]["Twain, Mark"])
}

func TestFavoriteFacets(t *testing.T) {
	withSection := func(c *config.ShelflineConfig) {
		c.Facets.Sections["FavoriteFacets"] = []config.FacetField{{Field: "format", Label: "Format"}}
	}

	f := newFixture(t, withSection)
	module := f.run(t, "Solr", "FavoriteFacets", nil)
	assert.True(t, module.(*FavoriteFacets).TagsEnabled())

	var fields []string
	for _, list := range module.Data().(FacetData).Facets {
		fields = append(fields, list.Field)
	}
	assert.ElementsMatch(t, []string{"format", "tags"}, fields)

	disabled := newFixture(t, func(c *config.ShelflineConfig) {
		withSection(c)
		c.Social.Tags = "disabled"
	})
	module = disabled.run(t, "Solr", "FavoriteFacets", nil)
	assert.False(t, module.(*FavoriteFacets).TagsEnabled())
	data := module.Data().(FacetData)
	require.Len(t, data.Facets, 1)
	assert.Equal(t, "format", data.Facets[0].Field)
}

func TestAuthorFacets(t *testing.T) {
	f := newFixture(t, nil)

	authors := f.run(t, "Solr", "AuthorFacets:1", url.Values{"lookfor": {"twain"}}).Data().([]search.FacetItem)
	require.Len(t, authors, 1)
	assert.Equal(t, "Twain, Mark", authors[0].Value)

	q := f.backends["Solr"].last()
	assert.Equal(t, "Author", q.Handler)
	assert.Equal(t, []string{"author_facet"}, q.Facets)
	assert.Equal(t, 1, q.FacetLimit)

	empty := f.run(t, "Solr", "AuthorFacets", nil).Data().([]search.FacetItem)
	assert.Empty(t, empty)
}

func TestSecondarySearchModules(t *testing.T) {
	tests := []struct {
		spec    string
		backend string
		records int
	}{
		{"CatalogResults:lookfor:2", "Solr", 2},
		{"SummonResults", "Summon", 5},
		{"WebResults:lookfor:3", "SolrWeb", 3},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			f := newFixture(t, nil)

			data := f.run(t, "SolrAuth", tt.spec, url.Values{"lookfor": {"history"}}).Data().(ResultsData)
			assert.Equal(t, tt.backend, data.Backend)
			assert.Equal(t, 42, data.Total)
			assert.Len(t, data.Records, tt.records)

			q := f.backends[tt.backend].last()
			assert.Equal(t, "history", q.Lookfor)
			assert.Equal(t, tt.records, q.Limit)
		})
	}
}

func TestSecondarySearchWithoutTerms(t *testing.T) {
	f := newFixture(t, nil)

	data := f.run(t, "Solr", "SummonResults", nil).Data().(ResultsData)
	assert.Empty(t, data.Records)
	assert.Zero(t, f.backends["Summon"].count())
}

func TestSwitchQuery(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		lookfor  string
		expected []Suggestion
	}{
		{"lowercase booleans", "SwitchQuery", "cats and dogs", []Suggestion{{"switchquery_lowercasebools", "cats AND dogs"}}},
		{"unwanted quotes", "SwitchQuery", `"history"`, []Suggestion{{"switchquery_unwantedquotes", "history"}}},
		{"unmatched quotes", "SwitchQuery", `"history`, []Suggestion{{"switchquery_unmatchedquotes", "history"}}},
		{"wildcard", "SwitchQuery", "history", []Suggestion{{"switchquery_wildcard", "history*"}}},
		{"already wildcarded", "SwitchQuery", "hist*", []Suggestion{}},
		{"skipped check", "SwitchQuery:Solr:wildcard", "history", []Suggestion{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			data := f.run(t, "Solr", tt.spec, url.Values{"lookfor": {tt.lookfor}}).Data()
			assert.Equal(t, tt.expected, data)
		})
	}
}

func TestSwitchQueryUnknownBackend(t *testing.T) {
	f := newFixture(t, nil)

	module, err := f.pm.Load("SwitchQuery:Nope", search.NewParams("Solr"), url.Values{"lookfor": {"x"}})
	require.NoError(t, err)
	err = module.Process(context.Background(), nil)
	assert.ErrorIs(t, err, search.ErrBackendNotFound)
}

func TestRandomRecommend(t *testing.T) {
	t.Run("disregard with filters", func(t *testing.T) {
		f := newFixture(t, nil)

		records := f.run(t, "Solr", "RandomRecommend:Solr:3:disregard:format:Book", url.Values{"lookfor": {"history"}}).Data().([]search.Record)
		assert.Len(t, records, 3)

		q := f.backends["Solr"].last()
		assert.True(t, q.Random)
		assert.Equal(t, 3, q.Limit)
		assert.Empty(t, q.Lookfor)
		assert.Equal(t, []string{"Book"}, q.Filters["format"])
	})

	t.Run("retain", func(t *testing.T) {
		f := newFixture(t, nil)

		records := f.run(t, "Solr", "RandomRecommend:Solr:2", url.Values{
			"lookfor":  {"history"},
			"filter[]": {`language:"English"`},
		}).Data().([]search.Record)
		assert.Len(t, records, 2)

		q := f.backends["Solr"].last()
		assert.Equal(t, "history", q.Lookfor)
		assert.Equal(t, []string{"English"}, q.Filters["language"])
	})

	t.Run("invalid settings", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.pm.Load("RandomRecommend:Solr:2:sometimes", search.NewParams("Solr"), nil)
		assert.Error(t, err)
		_, err = f.pm.Load("RandomRecommend:Solr:2:retain:format", search.NewParams("Solr"), nil)
		assert.Error(t, err)
	})
}

func TestAuthorityRecommend(t *testing.T) {
	f := newFixture(t, nil)

	records := f.run(t, "Solr", "AuthorityRecommend:SolrAuth:source|lcnaf", url.Values{"lookfor": {"twain"}}).Data().([]search.Record)
	assert.Len(t, records, 5)

	q := f.backends["SolrAuth"].last()
	assert.Equal(t, "twain", q.Lookfor)
	assert.Equal(t, "Heading", q.Handler)
	assert.Equal(t, []string{"lcnaf"}, q.Filters["source"])

	_, err := f.pm.Load("AuthorityRecommend:SolrAuth:source", search.NewParams("Solr"), nil)
	assert.Error(t, err)
}

func TestMapSelection(t *testing.T) {
	f := newFixture(t, nil)

	data := f.run(t, "Solr", "MapSelection:10", url.Values{
		"lookfor":  {"maps"},
		"filter[]": {`long_lat:"Intersects(ENVELOPE(-10, 10, 20, -20))"`},
	}).Data().(MapSelectionData)

	assert.Equal(t, "long_lat", data.GeoField)
	assert.Equal(t, []float64{-95, 30, 72, 15}, data.DefaultCoordinates)
	assert.Equal(t, []float64{-10, 10, 20, -20}, data.SelectedCoordinates)
	assert.Equal(t, 320, data.Height)
	require.Len(t, data.Markers, 5)
	assert.Equal(t, MapMarker{ID: "Solr-0", Title: "Title 0", Coordinates: "10 20"}, data.Markers[0])
}

func TestMapSelectionInvalidDefaults(t *testing.T) {
	f := newFixture(t, func(c *config.ShelflineConfig) { c.MapSelection.DefaultCoordinates = "1, 2" })

	module, err := f.pm.Load("MapSelection", search.NewParams("Solr"), nil)
	require.NoError(t, err)
	assert.Error(t, module.Process(context.Background(), nil))
}

func TestSummonModules(t *testing.T) {
	t.Run("reuses a Summon search", func(t *testing.T) {
		f := newFixture(t, nil)

		links := f.run(t, "Summon", "SummonBestBets", url.Values{"lookfor": {"history"}}).Data().([]search.Link)
		require.Len(t, links, 1)
		assert.Equal(t, "Best", links[0].Title)
		assert.Equal(t, 1, f.backends["Summon"].count())
	})

	t.Run("searches Summon for other backends", func(t *testing.T) {
		f := newFixture(t, nil)

		links := f.run(t, "Solr", "SummonDatabases", url.Values{"lookfor": {"history"}}).Data().([]search.Link)
		require.Len(t, links, 1)
		assert.Equal(t, "JSTOR", links[0].Title)
		assert.Equal(t, "history", f.backends["Summon"].last().Lookfor)
	})

	t.Run("nothing without terms", func(t *testing.T) {
		f := newFixture(t, nil)

		links := f.run(t, "Solr", "SummonTopics", nil).Data().([]search.Link)
		assert.Empty(t, links)
		assert.Zero(t, f.backends["Summon"].count())
	})
}

func TestDPLATerms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/items", r.URL.Path)
		assert.Equal(t, "dpla-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "history", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("page_size"))
		_, _ = w.Write([]byte(`{"docs":[{"id":"d1","sourceResource":{"title":["A title"],"description":"About it"},"isShownAt":"http://dpla.example/1","dataProvider":"Library"}]}`))
	}))
	defer server.Close()

	f := newFixture(t, func(c *config.ShelflineConfig) { c.DPLA.URL = server.URL + "/v2/items" })

	records := f.run(t, "Solr", "DPLATerms:2", url.Values{"lookfor": {"history"}}).Data().([]ExternalRecord)
	require.Len(t, records, 1)
	assert.Equal(t, ExternalRecord{
		ID:          "d1",
		Title:       "A title",
		Description: "About it",
		Link:        "http://dpla.example/1",
		Provider:    "Library",
	}, records[0])
}

func TestEuropeanaResults(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "eu-key", r.URL.Query().Get("wskey"))
		assert.Equal(t, `history NOT PROVIDER:"Bad Provider"`, r.URL.Query().Get("query"))
		assert.Equal(t, "3", r.URL.Query().Get("rows"))
		_, _ = w.Write([]byte(`{"items":[{"id":"/1/a","title":["Euro"],"guid":"http://eu.example/1","provider":["Museum"]}]}`))
	}))
	defer server.Close()

	f := newFixture(t, func(c *config.ShelflineConfig) {
		c.Content.EuropeanaAPI = "eu-key"
		c.Content.EuropeanaURL = server.URL
	})

	records := f.run(t, "Solr", "EuropeanaResults:lookfor:3:Bad Provider", url.Values{"lookfor": {"history"}}).Data().([]ExternalRecord)
	require.Len(t, records, 1)
	assert.Equal(t, "Euro", records[0].Title)
	assert.Equal(t, "Museum", records[0].Provider)
	assert.EqualValues(t, 1, calls.Load())

	keyless := newFixture(t, func(c *config.ShelflineConfig) { c.Content.EuropeanaURL = server.URL })
	records = keyless.run(t, "Solr", "EuropeanaResults", url.Values{"lookfor": {"history"}}).Data().([]ExternalRecord)
	assert.Empty(t, records)
	assert.EqualValues(t, 1, calls.Load())
}

func TestAuthorInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/de/page/summary/Mark_Twain":
			_, _ = w.Write([]byte(`{"type":"standard","description":"American author","extract":"Samuel Clemens wrote.","thumbnail":{"source":"http://img.example/t.jpg"},"content_urls":{"desktop":{"page":"http://wiki.example/Twain"}}}`))
		default:
			_, _ = w.Write([]byte(`{"type":"disambiguation"}`))
		}
	}))
	defer server.Close()

	withWikipedia := func(c *config.ShelflineConfig) {
		c.Content.Authors = "Wikipedia"
		c.Content.WikipediaURL = server.URL + "/{lang}"
	}

	f := newFixture(t, withWikipedia)
	data := f.run(t, "Solr", "AuthorInfo:de", url.Values{"lookfor": {"Twain, Mark, 1835-1910"}}).Data().(*AuthorInfoData)
	require.NotNil(t, data)
	assert.Equal(t, "Mark Twain", data.Name)
	assert.Equal(t, "American author", data.Description)
	assert.Equal(t, "Samuel Clemens wrote.", data.Summary)
	assert.Equal(t, "http://img.example/t.jpg", data.Image)
	assert.Equal(t, "http://wiki.example/Twain", data.Link)
	assert.Equal(t, 42, data.WorkCount)

	ambiguous := f.run(t, "Solr", "AuthorInfo", url.Values{"lookfor": {"Smith"}}).Data()
	assert.Nil(t, ambiguous)

	disabled := newFixture(t, nil)
	module := disabled.run(t, "Solr", "AuthorInfo", url.Values{"lookfor": {"Twain, Mark"}})
	assert.Empty(t, module.(*AuthorInfo).Sources())
	assert.Nil(t, module.Data())
}

func TestAuthorInfoLanguageSetting(t *testing.T) {
	tests := []struct {
		name     string
		settings string
		want     string
		wantErr  bool
	}{
		{name: "default", settings: "", want: "en"},
		{name: "plain language", settings: "de", want: "de"},
		{name: "region is dropped", settings: "pt-BR", want: "pt"},
		{name: "host and path", settings: "169.254.169.254/latest/meta-data#", wantErr: true},
		{name: "domain name", settings: "evil.example", wantErr: true},
		{name: "private use", settings: "x-internal", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			module := NewAuthorInfo(nil, nil, config.ContentConfig{Authors: "Wikipedia"})
			err := module.SetConfig(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "en", module.language)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, module.language)
		})
	}
}

func TestAuthorInfoInvalidLanguageSendsNoRequest(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(`{"type":"standard"}`))
	}))
	defer server.Close()

	f := newFixture(t, func(c *config.ShelflineConfig) {
		c.Content.Authors = "Wikipedia"
		c.Content.WikipediaURL = server.URL + "/{lang}"
	})
	results, err := f.results.Get("Solr")
	require.NoError(t, err)
	request := url.Values{"lookfor": {"Twain, Mark"}}
	results.Params().InitFromRequest(request)

	_, err = f.pm.Load("AuthorInfo:169.254.169.254/latest/meta-data#", results.Params(), request)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid AuthorInfo language")
	assert.Zero(t, requests.Load())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Mark Twain", displayName("Twain, Mark"))
	assert.Equal(t, "Mark Twain", displayName("Twain, Mark, 1835-1910"))
	assert.Equal(t, "Homer", displayName("Homer"))
}

func TestWorldCatIdentities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `local.Name all "Mark Twain"`, r.URL.Query().Get("query"))
		assert.Equal(t, "2", r.URL.Query().Get("maximumRecords"))
		_, _ = w.Write([]byte(`<searchRetrieveResponse><records><record><recordData><Identity>
<nameInfo><rawName><suba>Twain, Mark</suba></rawName></nameInfo>
<fastHeadings><fast>Humor</fast></fastHeadings>
</Identity></recordData></record></records></searchRetrieveResponse>`))
	}))
	defer server.Close()

	f := newFixture(t, func(c *config.ShelflineConfig) { c.WorldCat.IdentitiesURL = server.URL })

	identities := f.run(t, "Solr", "WorldCatIdentities:2", url.Values{"lookfor": {"Mark Twain"}}).Data().([]worldcat.Identity)
	require.Len(t, identities, 1)
	assert.Equal(t, "Twain, Mark", identities[0].Name)
	assert.Equal(t, []string{"Humor"}, identities[0].Subjects)
}
