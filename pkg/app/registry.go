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

package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ahoma/shelfline/pkg/auth"
	"github.com/ahoma/shelfline/pkg/cache"
	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/db"
	"github.com/ahoma/shelfline/pkg/di"
	"github.com/ahoma/shelfline/pkg/httpservice"
	"github.com/ahoma/shelfline/pkg/i18n"
	"github.com/ahoma/shelfline/pkg/ils"
	"github.com/ahoma/shelfline/pkg/logging"
	"github.com/ahoma/shelfline/pkg/metrics"
	"github.com/ahoma/shelfline/pkg/recommend"
	"github.com/ahoma/shelfline/pkg/search"
	"github.com/ahoma/shelfline/pkg/session"
	"github.com/ahoma/shelfline/pkg/tags"
	"github.com/ahoma/shelfline/pkg/worldcat"
)

// Public identifiers of the top-level services
const (
	ServiceDbAdapter         = "DbAdapter"
	ServiceHTTP              = "Http"
	ServiceSearchService     = "SearchService"
	ServiceSearchTabsHelper  = "SearchTabsHelper"
	ServiceTags              = "Tags"
	ServiceTranslator        = "Translator"
	ServiceWorldCatUtils     = "WorldCatUtils"
	ServiceILSAuthenticator  = "ILSAuthenticator"
	ServiceILSConnection     = "ILSConnection"
	ServiceAuthManager       = "AuthManager"
	ServiceAuthPluginManager = "AuthPluginManager"
	ServiceRecommendManager  = "RecommendPluginManager"
	ServiceSearchBackends    = "SearchBackendManager"
	ServiceCacheManager      = "CacheManager"
	ServiceSessionManager    = "SessionManager"
)

// languageCache is the cache the translator stores message tables in
const languageCache = "language"

// ServiceRegistry registers all Shelfline services with the DI container
type ServiceRegistry struct {
	container  *di.Container
	configFile string
	config     *config.ShelflineConfig
}

// NewServiceRegistry creates a new service registry
func NewServiceRegistry(container *di.Container) *ServiceRegistry {
	return &ServiceRegistry{
		container: container,
	}
}

// WithConfigFile sets the configuration file path
func (r *ServiceRegistry) WithConfigFile(configFile string) *ServiceRegistry {
	r.configFile = configFile
	return r
}

// WithConfig uses cfg instead of loading configuration
func (r *ServiceRegistry) WithConfig(cfg *config.ShelflineConfig) *ServiceRegistry {
	r.config = cfg
	return r
}

// RegisterAll registers every Shelfline service
func (r *ServiceRegistry) RegisterAll() error {
	steps := []struct {
		name     string
		register func() error
	}{
		{"configuration", r.RegisterConfiguration},
		{"logger", r.RegisterLogger},
		{"core services", r.RegisterCoreServices},
		{"search services", r.RegisterSearch},
		{"top-level services", r.RegisterServices},
		{"auth services", r.RegisterAuth},
		{"recommendation modules", r.RegisterRecommend},
		{"service locator", r.RegisterLocator},
	}
	for _, step := range steps {
		if err := step.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", step.name, err)
		}
	}
	return nil
}

// RegisterConfiguration registers configuration-related services
func (r *ServiceRegistry) RegisterConfiguration() error {
	if r.config != nil {
		if err := r.config.Validate(); err != nil {
			return err
		}
		cfg := r.config
		r.container.MustProvide(func() *config.ShelflineConfig { return cfg })
	} else {
		r.container.MustProvide(func() *config.Loader {
			loader := config.NewLoader()
			if r.configFile != "" {
				loader = loader.WithConfigFile(r.configFile)
			}
			return loader
		})
		r.container.MustProvide(func(loader *config.Loader) (*config.ShelflineConfig, error) {
			return loader.Load()
		})
	}

	r.container.MustProvide(config.NewAccountCapabilities)
	return nil
}

// RegisterLogger registers the structured logger
func (r *ServiceRegistry) RegisterLogger() error {
	r.container.MustProvide(func(cfg *config.ShelflineConfig) (*logging.Logger, error) {
		logConfig := &logging.Config{
			Level:       cfg.Observability.Logging.Level,
			Format:      cfg.Observability.Logging.Format,
			Output:      "stdout",
			AddCaller:   cfg.Observability.Logging.AddCaller,
			Development: cfg.Observability.Logging.Development || cfg.IsDevelopment(),
		}
		return logging.NewLogger(logConfig)
	})
	return nil
}

// RegisterCoreServices registers metrics, cache, database, session and HTTP services
func (r *ServiceRegistry) RegisterCoreServices() error {
	r.container.MustProvide(metrics.NewCollector)

	r.container.MustProvide(func(cfg *config.ShelflineConfig, logger *logging.Logger) *cache.Manager {
		return cache.NewManager(cfg.Cache.Dir, cfg.Cache.TTL, logger)
	})

	r.container.MustProvide(func(cfg *config.ShelflineConfig, logger *logging.Logger) *db.AdapterFactory {
		return db.NewAdapterFactory(cfg.Database, logger)
	})

	// DbAdapter
	r.container.MustProvide(func(factory *db.AdapterFactory) (*sql.DB, error) {
		return factory.GetAdapter()
	})

	r.container.MustProvide(func(cfg *config.ShelflineConfig, factory *db.AdapterFactory) (session.Store, error) {
		if cfg.Session.Type != "database" {
			return session.NewMemoryStore(), nil
		}
		adapter, err := factory.GetAdapter()
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		return session.NewSQLStore(adapter), nil
	})

	r.container.MustProvide(func(cfg *config.ShelflineConfig, store session.Store) *session.Manager {
		return session.NewManager(store, cfg.Session.CookieName, cfg.Session.Lifetime)
	})

	// Http
	r.container.MustProvide(func(cfg *config.ShelflineConfig, logger *logging.Logger, collector *metrics.Collector) *httpservice.Service {
		return httpservice.NewService(
			httpservice.OptionsFromConfig(cfg.Proxy),
			cfg.HTTP,
			httpservice.WithObserver(collector),
			httpservice.WithLogger(logger.WithName("http")),
		)
	})

	return nil
}

// RegisterSearch registers the search backends and the services built on them
func (r *ServiceRegistry) RegisterSearch() error {
	r.container.MustProvide(func(cfg *config.ShelflineConfig, http *httpservice.Service) (*search.BackendManager, error) {
		return search.NewBackendManagerFromConfig(cfg.Backends, http.CreateClient())
	})

	r.container.MustProvide(func(logger *logging.Logger) *search.EventManager {
		events := search.NewEventManager()
		searchLogger := logger.WithName("search")
		events.Attach(search.EventPost, func(_ context.Context, e *search.Event) error {
			if e.Err != nil {
				searchLogger.Error(e.Err, "Search failed", "backend", e.Backend)
				return nil
			}
			searchLogger.Debug("Search completed", "backend", e.Backend, "total", e.Result.Total)
			return nil
		})
		return events
	})

	// SearchService
	r.container.MustProvide(func(events *search.EventManager, backends *search.BackendManager, collector *metrics.Collector) *search.Service {
		return search.NewService(events, backends, collector)
	})

	r.container.MustProvide(search.NewParamsManager)
	r.container.MustProvide(search.NewResultsManager)
	r.container.MustProvide(search.NewRunner)

	// SearchTabsHelper
	r.container.MustProvide(func(cfg *config.ShelflineConfig) *search.TabsHelper {
		return search.NewTabsHelper(cfg.SearchTabs, cfg.SearchTabsFilters, cfg.SearchTabsPermissions)
	})

	r.container.MustProvide(func() *search.HierarchicalFacetHelper {
		return search.NewHierarchicalFacetHelper("/")
	})

	return nil
}

// RegisterServices registers the remaining top-level services
func (r *ServiceRegistry) RegisterServices() error {
	r.container.MustProvide(func(cfg *config.ShelflineConfig) *tags.Tags {
		return tags.New(cfg.Social.MaxTagLength)
	})

	r.container.MustProvide(newTranslator)

	r.container.MustProvide(func(cfg *config.ShelflineConfig, http *httpservice.Service, logger *logging.Logger) *worldcat.Utils {
		return worldcat.NewUtils(cfg.WorldCat, http.CreateClient(), true, cfg.Site.ServerAddress, logger)
	})

	r.container.MustProvide(func(cfg *config.ShelflineConfig) (ils.Connection, error) {
		return ils.NewConnection(cfg.Catalog)
	})

	return nil
}

// newTranslator builds the translator. A missing language cache is not
// fatal: the translator then works uncached.
func newTranslator(cfg *config.ShelflineConfig, caches *cache.Manager, collector *metrics.Collector, logger *logging.Logger) *i18n.Translator {
	locale, err := i18n.NormalizeLocale(cfg.Site.Language)
	if err != nil {
		locale = cfg.Site.Language
	}

	translator := i18n.NewTranslator(locale, i18n.NewExtendedIniLoader(LanguageDirs(cfg)...), logger)
	translator.SetFallbackLocales(i18n.FallbackLocales(locale)...)

	languages, err := caches.GetCache(languageCache)
	if err != nil {
		logger.Debug(fmt.Sprintf("Problem loading cache: %T exception: %s", err, err.Error()))
		collector.RecordCacheFallback("Translator", languageCache)
		return translator
	}
	translator.SetCache(languages)
	return translator
}

// LanguageDirs returns the language directories in override order
func LanguageDirs(cfg *config.ShelflineConfig) []string {
	dirs := []string{filepath.Join(cfg.Translator.ApplicationDir, "languages")}
	if cfg.Translator.LocalDir != "" {
		dirs = append(dirs, filepath.Join(cfg.Translator.LocalDir, "languages"))
	}
	return dirs
}

// authServices are the results of the auth provider
type authServices struct {
	plugins *auth.PluginManager
	manager *auth.Manager
	lazy    *auth.LazyILSAuthenticator
}

// RegisterAuth registers the auth plugin manager, the auth manager and the
// ILS authenticator. The authenticator needs the manager, which needs the
// plugins, which need the authenticator, so the cycle is broken by building
// the authenticator lazily from a manager that is assigned afterwards.
func (r *ServiceRegistry) RegisterAuth() error {
	r.container.MustProvide(func(
		cfg *config.ShelflineConfig,
		sessions *session.Manager,
		http *httpservice.Service,
		conn ils.Connection,
		collector *metrics.Collector,
		logger *logging.Logger,
	) *authServices {
		var manager *auth.Manager
		lazy := auth.NewILSAuthenticator(func() (*auth.Manager, error) {
			if manager == nil {
				return nil, errors.New("auth manager is not constructed yet")
			}
			return manager, nil
		}, conn, func(err error) {
			collector.RecordLazyInitialization(ServiceILSAuthenticator, err)
		})

		plugins := auth.NewPluginManager(auth.Dependencies{
			Config:           cfg,
			Sessions:         sessions,
			HTTP:             http,
			ILS:              conn,
			ILSAuthenticator: lazy,
		}, di.WithObserver(collector))
		manager = auth.NewManager(cfg.Auth.Method, plugins, sessions, logger)

		return &authServices{plugins: plugins, manager: manager, lazy: lazy}
	})

	r.container.MustProvide(func(s *authServices) *auth.PluginManager { return s.plugins })
	r.container.MustProvide(func(s *authServices) *auth.Manager { return s.manager })
	r.container.MustProvide(func(s *authServices) *auth.LazyILSAuthenticator { return s.lazy })

	return nil
}

// RegisterRecommend registers the recommendation module plugin manager
func (r *ServiceRegistry) RegisterRecommend() error {
	r.container.MustProvide(func(
		cfg *config.ShelflineConfig,
		service *search.Service,
		backends *search.BackendManager,
		params *search.ParamsManager,
		results *search.ResultsManager,
		runner *search.Runner,
		http *httpservice.Service,
		helper *search.HierarchicalFacetHelper,
		capabilities *config.AccountCapabilities,
		worldCat *worldcat.Utils,
		collector *metrics.Collector,
		logger *logging.Logger,
	) *recommend.PluginManager {
		return recommend.NewPluginManager(recommend.Dependencies{
			Config:             cfg,
			Search:             service,
			Backends:           backends,
			Params:             params,
			Results:            results,
			Runner:             runner,
			HTTP:               http,
			HierarchicalFacets: helper,
			Capabilities:       capabilities,
			WorldCat:           worldCat,
			Logger:             logger,
		}, di.WithObserver(collector))
	})
	return nil
}

// RegisterLocator registers the string-keyed locator over the top-level
// services. Each identifier resolves through the container on first use.
func (r *ServiceRegistry) RegisterLocator() error {
	r.container.MustProvide(func(collector *metrics.Collector) *di.Locator {
		return newServiceLocator(r.container, collector)
	})
	return nil
}

func newServiceLocator(c *di.Container, observer di.ResolutionObserver) *di.Locator {
	l := di.NewLocator("services", di.WithObserver(observer))
	l.MustRegister(ServiceDbAdapter, fromContainer[*sql.DB](c))
	l.MustRegister(ServiceHTTP, fromContainer[*httpservice.Service](c))
	l.MustRegister(ServiceSearchService, fromContainer[*search.Service](c))
	l.MustRegister(ServiceSearchTabsHelper, fromContainer[*search.TabsHelper](c))
	l.MustRegister(ServiceTags, fromContainer[*tags.Tags](c))
	l.MustRegister(ServiceTranslator, fromContainer[*i18n.Translator](c))
	l.MustRegister(ServiceWorldCatUtils, fromContainer[*worldcat.Utils](c))
	l.MustRegister(ServiceILSAuthenticator, fromContainer[*auth.LazyILSAuthenticator](c))
	l.MustRegister(ServiceILSConnection, fromContainer[ils.Connection](c))
	l.MustRegister(ServiceAuthManager, fromContainer[*auth.Manager](c))
	l.MustRegister(ServiceAuthPluginManager, fromContainer[*auth.PluginManager](c))
	l.MustRegister(ServiceRecommendManager, fromContainer[*recommend.PluginManager](c))
	l.MustRegister(ServiceSearchBackends, fromContainer[*search.BackendManager](c))
	l.MustRegister(ServiceCacheManager, fromContainer[*cache.Manager](c))
	l.MustRegister(ServiceSessionManager, fromContainer[*session.Manager](c))
	return l
}

func fromContainer[T any](c *di.Container) di.Factory {
	return func(di.Resolver) (any, error) {
		return di.Resolve[T](c)
	}
}
