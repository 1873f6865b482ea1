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

// Package recommend implements the recommendation modules shown alongside
// search results.
//
// A module is configured from a settings string of the form
// "Name:setting1:setting2", initialized from the search parameters before
// the search runs, and processed with the search results afterwards.
package recommend

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/ahoma/shelfline/pkg/search"
)

// Module is a recommendation module
type Module interface {
	// SetConfig receives the colon-separated settings following the module name
	SetConfig(settings string) error
	// Init runs before the search and may request facets or filters
	Init(params *search.Params, request url.Values) error
	// Process runs after the search
	Process(ctx context.Context, results *search.Results) error
	// Data returns what the module has to show
	Data() any
}

// ParseSpec splits "Name:settings" into the module name and its settings
func ParseSpec(spec string) (name, settings string) {
	name, settings, _ = strings.Cut(spec, ":")
	return name, settings
}

// settings is a parsed colon-separated settings string
type settings []string

func parseSettings(s string) settings {
	if s == "" {
		return nil
	}
	return strings.Split(s, ":")
}

// get returns part i or def when missing or empty
func (s settings) get(i int, def string) string {
	if i < len(s) && s[i] != "" {
		return s[i]
	}
	return def
}

// int returns part i as an int, or def when missing or invalid
func (s settings) int(i, def int) int {
	if i < len(s) {
		if v, err := strconv.Atoi(s[i]); err == nil && v > 0 {
			return v
		}
	}
	return def
}

// from returns the parts from i on
func (s settings) from(i int) []string {
	if i >= len(s) {
		return nil
	}
	return s[i:]
}

// lookforModule remembers the search terms of the request
type lookforModule struct {
	param   string
	lookfor string
}

func (m *lookforModule) initLookfor(params *search.Params, request url.Values) {
	param := m.param
	if param == "" {
		param = "lookfor"
	}
	m.lookfor = strings.TrimSpace(request.Get(param))
	if m.lookfor == "" && param == "lookfor" && params != nil {
		m.lookfor = strings.TrimSpace(params.Lookfor)
	}
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
