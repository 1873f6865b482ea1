/*
Package di provides dependency injection infrastructure for Shelfline.

Two mechanisms live here. The typed startup graph is a Uber Dig container
that receives every top-level constructor once at startup. The service
locator is a string-keyed registry used where plugins are selected by name
from configuration, such as login strategies and recommendation modules.

# Core Components

Container wraps the Uber Dig container:
  - Service registration (Provide, MustProvide, ProvideValue)
  - Dependency resolution (Invoke, Resolve)

Locator maps service identifiers to factories:
  - Singletons per locator, or a fresh instance per Get with NotShared
  - Aliases for alternative spellings of an identifier
  - One construction for concurrent first requests of the same identifier
  - Circular dependency detection along the resolution chain and across
    concurrent resolutions

Lazy defers construction of a value until first use.

# Factories

A factory receives a Resolver for sibling lookups and returns the instance:

	locator := di.NewLocator("services")
	locator.MustRegister("Http", func(di.Resolver) (any, error) {
		return httpservice.NewService(options, cfg.HTTP), nil
	})
	locator.MustRegister("WorldCatUtils", func(r di.Resolver) (any, error) {
		http, err := di.Get[*httpservice.Service](r, "Http")
		if err != nil {
			return nil, err
		}
		return worldcat.NewUtils(cfg.WorldCat, http.CreateClient(), true, ip, logger), nil
	})

	utils, err := di.Get[*worldcat.Utils](locator, "WorldCatUtils")

A factory that (transitively) asks for its own identifier fails with
ErrCircularDependency instead of blocking. The same holds when the cycle is
split across concurrent Gets: each in-flight construction records its owner
and the flight that owner waits on, and joining a flight whose owners lead
back to the caller fails.

# Error Handling

Every resolution failure is a *ResolutionError naming the locator and the
identifier. It wraps one of:
  - ErrNotRegistered for unknown identifiers
  - ErrCircularDependency for cycles
  - ErrTypeMismatch when Get[T] finds another type
  - the factory's own error, such as a *ConfigurationError

Failed constructions are not cached; the next Get runs the factory again.

	if di.IsConfigurationError(err) {
		// a mandatory configuration value is missing
	}

# Container Concurrency

Container serializes Invoke. A function passed to Invoke must not resolve
through a Locator whose factories call back into the same container.

# Related Packages

  - pkg/app: service registry and application lifecycle
  - pkg/auth: login strategy plugin manager
  - pkg/recommend: recommendation module plugin manager
  - pkg/metrics: ResolutionObserver implementation
*/
package di
