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

	"github.com/ahoma/shelfline/pkg/search"
)

const summonBackend = "Summon"

// summonModule shares the Summon recommendation lists across the Summon
// modules. When the current search is not a Summon search, a Summon search
// for the same terms is run instead.
type summonModule struct {
	lookforModule
	results    *search.ResultsManager
	collection *search.Collection
}

// SetConfig implements Module.
// Settings: [request parameter (default "lookfor")]
func (m *summonModule) SetConfig(s string) error {
	m.param = parseSettings(s).get(0, "lookfor")
	return nil
}

// Init implements Module
func (m *summonModule) Init(params *search.Params, request url.Values) error {
	m.initLookfor(params, request)
	return nil
}

func (m *summonModule) process(ctx context.Context, results *search.Results) error {
	if results != nil && results.Params().Backend() == summonBackend && results.Performed() {
		m.collection = results.Collection()
		return nil
	}
	if m.lookfor == "" {
		return nil
	}
	summon, err := m.results.Get(summonBackend)
	if err != nil {
		return err
	}
	summon.Params().Lookfor = m.lookfor
	summon.Params().Limit = 0
	if err := summon.PerformAndProcessSearch(ctx); err != nil {
		return err
	}
	m.collection = summon.Collection()
	return nil
}

func (m *summonModule) links(pick func(*search.Collection) []search.Link) []search.Link {
	if m.collection == nil {
		return []search.Link{}
	}
	if list := pick(m.collection); list != nil {
		return list
	}
	return []search.Link{}
}

// SummonBestBets shows Summon best bets
type SummonBestBets struct{ summonModule }

// NewSummonBestBets creates the module
func NewSummonBestBets(results *search.ResultsManager) *SummonBestBets {
	return &SummonBestBets{summonModule{results: results}}
}

// Process implements Module
func (m *SummonBestBets) Process(ctx context.Context, results *search.Results) error {
	return m.process(ctx, results)
}

// Data implements Module
func (m *SummonBestBets) Data() any {
	return m.links(func(c *search.Collection) []search.Link { return c.BestBets })
}

// SummonDatabases shows Summon database recommendations
type SummonDatabases struct{ summonModule }

// NewSummonDatabases creates the module
func NewSummonDatabases(results *search.ResultsManager) *SummonDatabases {
	return &SummonDatabases{summonModule{results: results}}
}

// Process implements Module
func (m *SummonDatabases) Process(ctx context.Context, results *search.Results) error {
	return m.process(ctx, results)
}

// Data implements Module
func (m *SummonDatabases) Data() any {
	return m.links(func(c *search.Collection) []search.Link { return c.Databases })
}

// SummonTopics shows Summon topic explorer entries
type SummonTopics struct{ summonModule }

// NewSummonTopics creates the module
func NewSummonTopics(results *search.ResultsManager) *SummonTopics {
	return &SummonTopics{summonModule{results: results}}
}

// Process implements Module
func (m *SummonTopics) Process(ctx context.Context, results *search.Results) error {
	return m.process(ctx, results)
}

// Data implements Module
func (m *SummonTopics) Data() any {
	return m.links(func(c *search.Collection) []search.Link { return c.Topics })
}
