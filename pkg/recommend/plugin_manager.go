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
	"net/url"
	"strings"

	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/di"
	"github.com/ahoma/shelfline/pkg/httpservice"
	"github.com/ahoma/shelfline/pkg/logging"
	"github.com/ahoma/shelfline/pkg/search"
	"github.com/ahoma/shelfline/pkg/worldcat"
)

// Dependencies are the collaborators the module factories draw from
type Dependencies struct {
	Config             *config.ShelflineConfig
	Search             *search.Service
	Backends           *search.BackendManager
	Params             *search.ParamsManager
	Results            *search.ResultsManager
	Runner             *search.Runner
	HTTP               *httpservice.Service
	HierarchicalFacets *search.HierarchicalFacetHelper
	Capabilities       *config.AccountCapabilities
	WorldCat           *worldcat.Utils
	Logger             *logging.Logger
}

// PluginManager resolves recommendation modules by name. Modules hold
// per-search state, so every Get builds a new instance.
type PluginManager struct {
	locator *di.Locator
}

// NewPluginManager creates a plugin manager with every module registered
func NewPluginManager(deps Dependencies, opts ...di.LocatorOption) *PluginManager {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	pm := &PluginManager{locator: di.NewLocator("recommend", opts...)}
	for name, factory := range Factories(deps) {
		pm.locator.MustRegister(name, factory, di.NotShared())
		if lower := strings.ToLower(name); lower != name {
			_ = pm.locator.Alias(lower, name)
		}
	}
	return pm
}

// Get returns a new instance of the named module
func (p *PluginManager) Get(name string) (Module, error) {
	return di.Get[Module](p.locator, name)
}

// Has reports whether name is a known module
func (p *PluginManager) Has(name string) bool {
	return p.locator.Has(name)
}

// Names returns the registered module names
func (p *PluginManager) Names() []string {
	return p.locator.IDs()
}

// Locator exposes the underlying service locator
func (p *PluginManager) Locator() *di.Locator {
	return p.locator
}

// Load builds the module described by spec ("Name:settings"), configures it
// and initializes it against params
func (p *PluginManager) Load(spec string, params *search.Params, request url.Values) (Module, error) {
	name, settings := ParseSpec(spec)
	module, err := p.Get(name)
	if err != nil {
		return nil, err
	}
	if err := module.SetConfig(settings); err != nil {
		return nil, err
	}
	if err := module.Init(params, request); err != nil {
		return nil, err
	}
	return module, nil
}
