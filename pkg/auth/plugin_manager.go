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

package auth

import (
	"strings"

	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/di"
	"github.com/ahoma/shelfline/pkg/httpservice"
	"github.com/ahoma/shelfline/pkg/ils"
	"github.com/ahoma/shelfline/pkg/session"
)

// Dependencies are the collaborators the strategy factories draw from
type Dependencies struct {
	Config           *config.ShelflineConfig
	Sessions         *session.Manager
	HTTP             *httpservice.Service
	ILS              ils.Connection
	ILSAuthenticator ILSAuthenticator
}

// PluginManager resolves login strategies by name
type PluginManager struct {
	locator *di.Locator
}

// NewPluginManager creates a plugin manager with every strategy registered
func NewPluginManager(deps Dependencies, opts ...di.LocatorOption) *PluginManager {
	pm := &PluginManager{locator: di.NewLocator("auth", opts...)}
	for name, factory := range Factories(deps, pm) {
		pm.locator.MustRegister(name, factory)
		if lower := strings.ToLower(name); lower != name {
			_ = pm.locator.Alias(lower, name)
		}
	}
	return pm
}

// Get returns the named strategy
func (p *PluginManager) Get(name string) (Authenticator, error) {
	return di.Get[Authenticator](p.locator, name)
}

// Has reports whether name is a known strategy
func (p *PluginManager) Has(name string) bool {
	return p.locator.Has(name)
}

// Names returns the registered strategy names
func (p *PluginManager) Names() []string {
	return p.locator.IDs()
}

// Locator exposes the underlying service locator
func (p *PluginManager) Locator() *di.Locator {
	return p.locator
}
