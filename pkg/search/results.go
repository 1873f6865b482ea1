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
	"net/url"
)

// FacetItem is a facet value prepared for display
type FacetItem struct {
	Value     string `json:"value"`
	Count     int    `json:"count"`
	IsApplied bool   `json:"isApplied"`
}

// FacetList is the display form of one requested facet
type FacetList struct {
	Field string      `json:"field"`
	Label string      `json:"label"`
	List  []FacetItem `json:"list"`
}

// Results couples search parameters with the outcome of running them
type Results struct {
	params     *Params
	service    *Service
	collection *Collection
}

// NewResults creates results that have not been searched yet
func NewResults(params *Params, service *Service) *Results {
	return &Results{params: params, service: service}
}

// Params returns the search parameters
func (r *Results) Params() *Params {
	return r.params
}

// Performed reports whether the search has run
func (r *Results) Performed() bool {
	return r.collection != nil
}

// PerformAndProcessSearch runs the search
func (r *Results) PerformAndProcessSearch(ctx context.Context) error {
	collection, err := r.service.Search(ctx, r.params.Backend(), r.params.Query())
	if err != nil {
		return err
	}
	r.collection = collection
	return nil
}

// SetCollection supplies results obtained elsewhere
func (r *Results) SetCollection(c *Collection) {
	r.collection = c
}

// Collection returns the backend collection, empty before the search runs
func (r *Results) Collection() *Collection {
	if r.collection == nil {
		return &Collection{Backend: r.params.Backend(), Records: []Record{}}
	}
	return r.collection
}

// Total returns the total hit count
func (r *Results) Total() int {
	return r.Collection().Total
}

// Records returns the current page of records
func (r *Results) Records() []Record {
	return r.Collection().Records
}

// FacetList returns the requested facets restricted to fields, in request
// order. A nil fields selects every requested facet.
func (r *Results) FacetList(fields map[string]string) []FacetList {
	var lists []FacetList
	for _, f := range r.params.Facets() {
		label := f.Label
		if fields != nil {
			l, ok := fields[f.Field]
			if !ok {
				continue
			}
			if l != "" {
				label = l
			}
		}
		values := r.Collection().Facet(f.Field)
		items := make([]FacetItem, 0, len(values))
		for _, v := range values {
			items = append(items, FacetItem{
				Value:     v.Value,
				Count:     v.Count,
				IsApplied: r.params.HasFilter(f.Field, v.Value),
			})
		}
		lists = append(lists, FacetList{Field: f.Field, Label: label, List: items})
	}
	return lists
}

// ParamsManager creates parameters for known backends
type ParamsManager struct {
	backends *BackendManager
}

// NewParamsManager creates a params manager
func NewParamsManager(backends *BackendManager) *ParamsManager {
	return &ParamsManager{backends: backends}
}

// Get returns fresh parameters for backend
func (m *ParamsManager) Get(backend string) (*Params, error) {
	if _, err := m.backends.Get(backend); err != nil {
		return nil, err
	}
	return NewParams(backend), nil
}

// ResultsManager creates results objects for known backends
type ResultsManager struct {
	params  *ParamsManager
	service *Service
}

// NewResultsManager creates a results manager
func NewResultsManager(params *ParamsManager, service *Service) *ResultsManager {
	return &ResultsManager{params: params, service: service}
}

// Get returns fresh, unsearched results for backend
func (m *ResultsManager) Get(backend string) (*Results, error) {
	p, err := m.params.Get(backend)
	if err != nil {
		return nil, err
	}
	return NewResults(p, m.service), nil
}

// Runner runs a complete search from request values
type Runner struct {
	results *ResultsManager
}

// NewRunner creates a search runner
func NewRunner(results *ResultsManager) *Runner {
	return &Runner{results: results}
}

// Run builds results for backend, initializes them from request, lets setup
// adjust the parameters and performs the search
func (r *Runner) Run(ctx context.Context, request url.Values, backend string, setup func(*Params)) (*Results, error) {
	results, err := r.results.Get(backend)
	if err != nil {
		return nil, err
	}
	results.Params().InitFromRequest(request)
	if setup != nil {
		setup(results.Params())
	}
	if err := results.PerformAndProcessSearch(ctx); err != nil {
		return nil, err
	}
	return results, nil
}
