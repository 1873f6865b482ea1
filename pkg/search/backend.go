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

package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ahoma/shelfline/pkg/config"
)

// ErrBackendNotFound is returned for unknown backend identifiers
var ErrBackendNotFound = errors.New("search backend not found")

// Backend is a search index
type Backend interface {
	Identifier() string
	Search(ctx context.Context, q Query) (*Collection, error)
}

// JSONFetcher fetches and parses a JSON document
type JSONFetcher interface {
	GetJSON(ctx context.Context, rawURL string) (gjson.Result, error)
}

// Dialect translates queries to request URLs and responses to collections
type Dialect interface {
	Name() string
	BuildURL(base string, q Query) string
	Parse(backend string, offset int, body gjson.Result) *Collection
}

// HTTPBackend is a backend reached over HTTP with a JSON response
type HTTPBackend struct {
	id      string
	baseURL string
	dialect Dialect
	client  JSONFetcher
}

// NewHTTPBackend creates a backend
func NewHTTPBackend(id, baseURL string, dialect Dialect, client JSONFetcher) *HTTPBackend {
	return &HTTPBackend{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		dialect: dialect,
		client:  client,
	}
}

// Identifier implements Backend
func (b *HTTPBackend) Identifier() string {
	return b.id
}

// Dialect returns the response dialect
func (b *HTTPBackend) Dialect() Dialect {
	return b.dialect
}

// Search implements Backend
func (b *HTTPBackend) Search(ctx context.Context, q Query) (*Collection, error) {
	body, err := b.client.GetJSON(ctx, b.dialect.BuildURL(b.baseURL, q))
	if err != nil {
		return nil, fmt.Errorf("%s search failed: %w", b.id, err)
	}
	return b.dialect.Parse(b.id, q.Offset, body), nil
}

// DialectFor returns the dialect for a configured backend type
func DialectFor(backendType string) (Dialect, error) {
	switch backendType {
	case "solr":
		return SolrDialect{}, nil
	case "summon":
		return SummonDialect{}, nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", backendType)
	}
}

// SolrDialect speaks the Solr select handler
type SolrDialect struct{}

// Name implements Dialect
func (SolrDialect) Name() string { return "solr" }

// BuildURL implements Dialect
func (SolrDialect) BuildURL(base string, q Query) string {
	v := url.Values{}
	lookfor := strings.TrimSpace(q.Lookfor)
	switch {
	case lookfor == "":
		v.Set("q", "*:*")
	case q.Handler != "" && q.Handler != "AllFields":
		v.Set("q", q.Handler+":("+lookfor+")")
	default:
		v.Set("q", lookfor)
	}
	v.Set("wt", "json")
	v.Set("start", strconv.Itoa(q.Offset))
	v.Set("rows", strconv.Itoa(q.Limit))

	for _, field := range sortedKeys(q.Filters) {
		for _, value := range q.Filters[field] {
			v.Add("fq", field+`:"`+strings.ReplaceAll(value, `"`, `\"`)+`"`)
		}
	}
	if len(q.Facets) > 0 {
		v.Set("facet", "true")
		v.Set("facet.mincount", "1")
		if q.FacetLimit > 0 {
			v.Set("facet.limit", strconv.Itoa(q.FacetLimit))
		}
		for _, f := range q.Facets {
			v.Add("facet.field", f)
		}
	}
	switch {
	case q.Random:
		v.Set("sort", "random_"+strconv.FormatInt(time.Now().UnixNano()%100000, 10)+" asc")
	case q.Sort != "" && q.Sort != "relevance":
		v.Set("sort", q.Sort)
	}
	return base + "/select?" + v.Encode()
}

// Parse implements Dialect
func (SolrDialect) Parse(backend string, offset int, body gjson.Result) *Collection {
	c := &Collection{
		Backend: backend,
		Total:   int(body.Get("response.numFound").Int()),
		Offset:  offset,
		Records: []Record{},
		Facets:  map[string][]FacetValue{},
	}

	body.Get("response.docs").ForEach(func(_, doc gjson.Result) bool {
		c.Records = append(c.Records, Record{
			ID:      doc.Get("id").String(),
			Title:   firstString(doc.Get("title")),
			Authors: stringList(doc.Get("author")),
			Formats: stringList(doc.Get("format")),
			Fields:  fields(doc),
		})
		return true
	})

	// Solr returns facet counts as a flat [value, count, value, count] list
	body.Get("facet_counts.facet_fields").ForEach(func(field, list gjson.Result) bool {
		items := list.Array()
		values := make([]FacetValue, 0, len(items)/2)
		for i := 0; i+1 < len(items); i += 2 {
			values = append(values, FacetValue{Value: items[i].String(), Count: int(items[i+1].Int())})
		}
		c.Facets[field.String()] = values
		return true
	})
	return c
}

// SummonDialect speaks the Summon search API
type SummonDialect struct{}

// Name implements Dialect
func (SummonDialect) Name() string { return "summon" }

// BuildURL implements Dialect
func (SummonDialect) BuildURL(base string, q Query) string {
	v := url.Values{}
	v.Set("s.q", strings.TrimSpace(q.Lookfor))
	limit := q.Limit
	if limit <= 0 {
		limit = 1
	}
	v.Set("s.ps", strconv.Itoa(limit))
	v.Set("s.pn", strconv.Itoa(q.Offset/limit+1))
	for _, field := range sortedKeys(q.Filters) {
		for _, value := range q.Filters[field] {
			v.Add("s.fvf", field+","+value)
		}
	}
	for _, f := range q.Facets {
		facet := f + ",or"
		if q.FacetLimit > 0 {
			facet += ",1," + strconv.Itoa(q.FacetLimit)
		}
		v.Add("s.ff", facet)
	}
	if q.Sort != "" && q.Sort != "relevance" {
		v.Set("s.sort", q.Sort)
	}
	return base + "/2.0.0/search?" + v.Encode()
}

// Parse implements Dialect
func (SummonDialect) Parse(backend string, offset int, body gjson.Result) *Collection {
	c := &Collection{
		Backend: backend,
		Total:   int(body.Get("recordCount").Int()),
		Offset:  offset,
		Records: []Record{},
		Facets:  map[string][]FacetValue{},
	}

	body.Get("documents").ForEach(func(_, doc gjson.Result) bool {
		c.Records = append(c.Records, Record{
			ID:      firstString(doc.Get("ID")),
			Title:   firstString(doc.Get("Title")),
			Authors: stringList(doc.Get("Author")),
			Formats: stringList(doc.Get("ContentType")),
			Fields:  fields(doc),
		})
		return true
	})

	body.Get("facetFields").ForEach(func(_, facet gjson.Result) bool {
		var values []FacetValue
		facet.Get("counts").ForEach(func(_, count gjson.Result) bool {
			values = append(values, FacetValue{Value: count.Get("value").String(), Count: int(count.Get("count").Int())})
			return true
		})
		c.Facets[facet.Get("fieldName").String()] = values
		return true
	})

	c.BestBets = links(body.Get("recommendationLists.bestBet"), "title", "link", "description")
	c.Databases = links(body.Get("recommendationLists.database"), "title", "link", "description")
	c.Topics = links(body.Get("topicRecommendations"), "title", "sourceLink", "snippet")
	return c
}

func links(list gjson.Result, title, link, description string) []Link {
	var out []Link
	list.ForEach(func(_, item gjson.Result) bool {
		out = append(out, Link{
			Title:       item.Get(title).String(),
			URL:         item.Get(link).String(),
			Description: item.Get(description).String(),
		})
		return true
	})
	return out
}

func firstString(v gjson.Result) string {
	if v.IsArray() {
		return v.Get("0").String()
	}
	return v.String()
}

func stringList(v gjson.Result) []string {
	if !v.Exists() {
		return nil
	}
	if !v.IsArray() {
		return []string{v.String()}
	}
	var out []string
	v.ForEach(func(_, item gjson.Result) bool {
		out = append(out, item.String())
		return true
	})
	return out
}

func fields(doc gjson.Result) map[string]any {
	if m, ok := doc.Value().(map[string]interface{}); ok {
		return m
	}
	return nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BackendManager looks up backends by identifier
type BackendManager struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewBackendManager creates an empty manager
func NewBackendManager() *BackendManager {
	return &BackendManager{backends: make(map[string]Backend)}
}

// NewBackendManagerFromConfig creates HTTP backends for every configured backend
func NewBackendManagerFromConfig(cfg map[string]config.BackendConfig, client JSONFetcher) (*BackendManager, error) {
	m := NewBackendManager()
	for _, id := range sortedBackendIDs(cfg) {
		bc := cfg[id]
		dialect, err := DialectFor(bc.Type)
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", id, err)
		}
		m.Register(NewHTTPBackend(id, bc.URL, dialect, client))
	}
	return m, nil
}

func sortedBackendIDs(cfg map[string]config.BackendConfig) []string {
	ids := make([]string, 0, len(cfg))
	for id := range cfg {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Register adds or replaces a backend
func (m *BackendManager) Register(b Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backends[b.Identifier()] = b
}

// Get returns the backend with the given identifier
func (m *BackendManager) Get(id string) (Backend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.backends[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, id)
	}
	return b, nil
}

// Has reports whether id is registered
func (m *BackendManager) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.backends[id]
	return ok
}

// Identifiers returns the registered identifiers, sorted
func (m *BackendManager) Identifiers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.backends))
	for id := range m.backends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
