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
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// FacetRequest is a facet field requested for display
type FacetRequest struct {
	Field string `json:"field"`
	Label string `json:"label"`
}

// Params holds the parameters of one search request
type Params struct {
	backend string

	Lookfor string
	Handler string
	Page    int
	Limit   int
	Sort    string

	filters       map[string][]string
	hiddenFilters map[string][]string
	facets        []FacetRequest
	facetLimit    int
}

// NewParams creates default parameters for backend
func NewParams(backend string) *Params {
	return &Params{
		backend:       backend,
		Handler:       "AllFields",
		Page:          1,
		Limit:         defaultLimit,
		filters:       make(map[string][]string),
		hiddenFilters: make(map[string][]string),
	}
}

// Backend returns the backend identifier the parameters target
func (p *Params) Backend() string {
	return p.backend
}

// InitFromRequest reads lookfor, type, page, limit, sort, filter and
// hiddenFilters from request values
func (p *Params) InitFromRequest(req url.Values) {
	if v := req.Get("lookfor"); v != "" {
		p.Lookfor = v
	}
	if v := req.Get("type"); v != "" {
		p.Handler = v
	}
	if v, err := strconv.Atoi(req.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(req.Get("limit")); err == nil && v > 0 {
		p.Limit = min(v, maxLimit)
	}
	if v := req.Get("sort"); v != "" {
		p.Sort = v
	}
	for _, key := range []string{"filter", "filter[]"} {
		for _, f := range req[key] {
			p.AddFilter(f)
		}
	}
	for _, key := range []string{"hiddenFilters", "hiddenFilters[]"} {
		for _, f := range req[key] {
			p.AddHiddenFilter(f)
		}
	}
}

// ParseFilter splits "field:value" (value optionally quoted)
func ParseFilter(spec string) (field, value string, ok bool) {
	field, value, ok = strings.Cut(spec, ":")
	if !ok || field == "" {
		return "", "", false
	}
	return field, strings.Trim(value, `"`), true
}

func addTo(m map[string][]string, spec string) {
	field, value, ok := ParseFilter(spec)
	if !ok || slices.Contains(m[field], value) {
		return
	}
	m[field] = append(m[field], value)
}

// AddFilter applies a user-visible "field:value" filter
func (p *Params) AddFilter(spec string) {
	addTo(p.filters, spec)
}

// AddHiddenFilter applies a "field:value" filter not shown to the user
func (p *Params) AddHiddenFilter(spec string) {
	addTo(p.hiddenFilters, spec)
}

// RemoveFilter removes one filter value
func (p *Params) RemoveFilter(field, value string) {
	values := slices.DeleteFunc(p.filters[field], func(v string) bool { return v == value })
	if len(values) == 0 {
		delete(p.filters, field)
		return
	}
	p.filters[field] = values
}

// HasFilter reports whether a user filter is applied
func (p *Params) HasFilter(field, value string) bool {
	return slices.Contains(p.filters[field], value)
}

// Filters returns a copy of the user filters
func (p *Params) Filters() map[string][]string {
	return cloneFilters(p.filters)
}

// HiddenFilters returns a copy of the hidden filters
func (p *Params) HiddenFilters() map[string][]string {
	return cloneFilters(p.hiddenFilters)
}

func cloneFilters(m map[string][]string) map[string][]string {
	c := make(map[string][]string, len(m))
	for k, v := range m {
		c[k] = append([]string(nil), v...)
	}
	return c
}

// AddFacet requests a facet field
func (p *Params) AddFacet(field, label string) {
	for _, f := range p.facets {
		if f.Field == field {
			return
		}
	}
	if label == "" {
		label = field
	}
	p.facets = append(p.facets, FacetRequest{Field: field, Label: label})
}

// Facets returns the requested facets in request order
func (p *Params) Facets() []FacetRequest {
	return append([]FacetRequest(nil), p.facets...)
}

// FacetLabel returns the label of a requested facet, or the field name
func (p *Params) FacetLabel(field string) string {
	for _, f := range p.facets {
		if f.Field == field {
			return f.Label
		}
	}
	return field
}

// SetFacetLimit sets how many values are requested per facet
func (p *Params) SetFacetLimit(n int) {
	p.facetLimit = n
}

// Query builds the backend query
func (p *Params) Query() Query {
	filters := cloneFilters(p.filters)
	for k, v := range p.hiddenFilters {
		filters[k] = append(filters[k], v...)
	}
	facets := make([]string, 0, len(p.facets))
	for _, f := range p.facets {
		facets = append(facets, f.Field)
	}
	page := max(p.Page, 1)
	return Query{
		Lookfor:    p.Lookfor,
		Handler:    p.Handler,
		Filters:    filters,
		Offset:     (page - 1) * p.Limit,
		Limit:      p.Limit,
		Sort:       p.Sort,
		Facets:     facets,
		FacetLimit: p.facetLimit,
	}
}

// URLValues encodes the user-visible parameters as request values
func (p *Params) URLValues() url.Values {
	v := url.Values{}
	if p.Lookfor != "" {
		v.Set("lookfor", p.Lookfor)
	}
	if p.Handler != "" && p.Handler != "AllFields" {
		v.Set("type", p.Handler)
	}
	for _, field := range sortedKeys(p.filters) {
		for _, value := range p.filters[field] {
			v.Add("filter[]", field+`:"`+value+`"`)
		}
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	return v
}

// Clone returns an independent copy
func (p *Params) Clone() *Params {
	c := *p
	c.filters = cloneFilters(p.filters)
	c.hiddenFilters = cloneFilters(p.hiddenFilters)
	c.facets = p.Facets()
	return &c
}
