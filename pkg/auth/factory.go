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
	"github.com/ahoma/shelfline/pkg/di"
	"github.com/ahoma/shelfline/pkg/ils"
)

// Factories returns the strategy factories keyed by strategy name
func Factories(deps Dependencies, pm *PluginManager) map[string]di.Factory {
	return map[string]di.Factory{
		"ChoiceAuth": ChoiceAuthFactory(deps, pm),
		"Facebook":   FacebookFactory(deps),
		"ILS":        ILSFactory(deps),
		"MultiAuth":  MultiAuthFactory(deps, pm),
		"MultiILS":   MultiILSFactory(deps),
		"Shibboleth": ShibbolethFactory(deps),
	}
}

// ChoiceAuthFactory builds ChoiceAuth over the ChoiceAuth session container
func ChoiceAuthFactory(deps Dependencies, pm *PluginManager) di.Factory {
	return func(di.Resolver) (any, error) {
		return NewChoiceAuth(deps.Sessions.Container(ChoiceAuthNamespace), pm, deps.Config.Auth.ChoiceAuthOptions), nil
	}
}

// FacebookFactory builds Facebook over the Facebook session container
func FacebookFactory(deps Dependencies) di.Factory {
	return func(di.Resolver) (any, error) {
		return NewFacebook(deps.Sessions.Container("Facebook"), deps.HTTP.CreateClient(), deps.Config.Facebook), nil
	}
}

// ILSFactory builds ILS from the catalog connection and the ILS authenticator
func ILSFactory(deps Dependencies) di.Factory {
	return func(di.Resolver) (any, error) {
		return NewILS(deps.ILS, deps.ILSAuthenticator), nil
	}
}

// MultiAuthFactory builds MultiAuth over the plugin manager
func MultiAuthFactory(deps Dependencies, pm *PluginManager) di.Factory {
	return func(di.Resolver) (any, error) {
		return NewMultiAuth(pm, deps.Config.Auth.MultiAuthOrder), nil
	}
}

// MultiILSFactory builds MultiILS from the catalog connection and the ILS authenticator
func MultiILSFactory(deps Dependencies) di.Factory {
	return func(di.Resolver) (any, error) {
		return NewMultiILS(deps.ILS, deps.ILSAuthenticator), nil
	}
}

// ShibbolethFactory builds Shibboleth over the session manager
func ShibbolethFactory(deps Dependencies) di.Factory {
	return func(di.Resolver) (any, error) {
		return NewShibboleth(deps.Sessions, deps.Config.Shibboleth), nil
	}
}

// NewILSAuthenticator returns a lazy proxy whose initializer builds the
// catalog authenticator from the manager returned by manager and conn.
// onInit, when set, observes every initialization attempt.
func NewILSAuthenticator(manager func() (*Manager, error), conn ils.Connection, onInit func(error)) *LazyILSAuthenticator {
	return NewLazyILSAuthenticator(func() (ILSAuthenticator, error) {
		m, err := manager()
		if onInit != nil {
			onInit(err)
		}
		if err != nil {
			return nil, err
		}
		return NewCatalogAuthenticator(m, conn), nil
	})
}
