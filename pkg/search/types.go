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

// Package search runs queries against the configured search backends and
// models the parameters and results the recommendation modules work with.
package search

import "maps"

// Query is a backend-neutral search request
type Query struct {
	Lookfor    string
	Handler    string
	Filters    map[string][]string
	Offset     int
	Limit      int
	Sort       string
	Facets     []string
	FacetLimit int
	// Random asks the backend for records in random order
	Random bool
}

// Clone returns a deep copy of q
func (q Query) Clone() Query {
	c := q
	c.Filters = make(map[string][]string, len(q.Filters))
	for k, v := range q.Filters {
		c.Filters[k] = append([]string(nil), v...)
	}
	c.Facets = append([]string(nil), q.Facets...)
	return c
}

// Record is a single search hit
type Record struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Authors []string       `json:"authors,omitempty"`
	Formats []string       `json:"formats,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Field returns the raw value of a stored field
func (r Record) Field(name string) (any, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// FacetValue is one value of a facet with its hit count
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Link is a titled external link, as returned by Summon recommendations
type Link struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Collection is the result of one backend search
type Collection struct {
	Backend   string                  `json:"backend"`
	Total     int                     `json:"total"`
	Offset    int                     `json:"offset"`
	Records   []Record                `json:"records"`
	Facets    map[string][]FacetValue `json:"facets,omitempty"`
	BestBets  []Link                  `json:"bestBets,omitempty"`
	Databases []Link                  `json:"databases,omitempty"`
	Topics    []Link                  `json:"topics,omitempty"`
}

// Facet returns the values of field
func (c *Collection) Facet(field string) []FacetValue {
	if c == nil {
		return nil
	}
	return c.Facets[field]
}

// FacetFields returns a copy of the facet map
func (c *Collection) FacetFields() map[string][]FacetValue {
	if c == nil {
		return nil
	}
	return maps.Clone(c.Facets)
}
