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
	"errors"
	"fmt"
	"sync"

	"go.uber.org/dig"

	"github.com/ahoma/shelfline/internal/server"
	"github.com/ahoma/shelfline/pkg/auth"
	"github.com/ahoma/shelfline/pkg/cache"
	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/db"
	"github.com/ahoma/shelfline/pkg/di"
	"github.com/ahoma/shelfline/pkg/i18n"
	"github.com/ahoma/shelfline/pkg/logging"
	"github.com/ahoma/shelfline/pkg/metrics"
	"github.com/ahoma/shelfline/pkg/recommend"
	"github.com/ahoma/shelfline/pkg/search"
	"github.com/ahoma/shelfline/pkg/session"
	"github.com/ahoma/shelfline/pkg/tags"
)

// objectsCacheDir holds generated proxy objects
const objectsCacheDir = "objects"

// ApplicationBuilder helps construct the application with dependency injection
type ApplicationBuilder struct {
	container  *di.Container
	configFile string
	config     *config.ShelflineConfig
}

// NewApplicationBuilder creates a new application builder
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{
		container: di.NewContainer(),
	}
}

// WithConfigFile sets the configuration file path
func (b *ApplicationBuilder) WithConfigFile(path string) *ApplicationBuilder {
	b.configFile = path
	return b
}

// WithConfig uses cfg instead of loading configuration
func (b *ApplicationBuilder) WithConfig(cfg *config.ShelflineConfig) *ApplicationBuilder {
	b.config = cfg
	return b
}

// Build builds the application with all dependencies configured. The
// configuration, logger, locator, cache manager, database adapter factory and
// translator are constructed here; the translator attaches its language cache
// at this point, before Init. Locator services are constructed on first Get.
func (b *ApplicationBuilder) Build(_ context.Context) (*Application, error) {
	registry := NewServiceRegistry(b.container).WithConfigFile(b.configFile)
	if b.config != nil {
		registry = registry.WithConfig(b.config)
	}
	if err := registry.RegisterAll(); err != nil {
		return nil, fmt.Errorf("failed to register services: %w", err)
	}

	b.container.MustProvide(func(
		cfg *config.ShelflineConfig,
		logger *logging.Logger,
		services *di.Locator,
		caches *cache.Manager,
		adapters *db.AdapterFactory,
		translator *i18n.Translator,
	) *Application {
		a := &Application{
			Config:     cfg,
			Container:  b.container,
			Logger:     logger,
			Services:   services,
			caches:     caches,
			adapters:   adapters,
			translator: translator,
			shutdown:   NewShutdownManager(cfg.Observability.Server.ShutdownTimeout, logger),
		}
		a.registerShutdownHooks()
		return a
	})

	app, err := di.Resolve[*Application](b.container)
	if err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}
	return app, nil
}

// Application is a wired Shelfline process
type Application struct {
	Config    *config.ShelflineConfig
	Container *di.Container
	Logger    *logging.Logger
	// Services resolves top-level services by identifier
	Services *di.Locator

	caches     *cache.Manager
	adapters   *db.AdapterFactory
	translator *i18n.Translator
	shutdown   *ShutdownManager

	initOnce sync.Once
	initErr  error

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Init runs the one-time startup steps. Background work started here stops
// when ctx is done. Later calls return the first call's result.
func (a *Application) Init(ctx context.Context) error {
	a.initOnce.Do(func() {
		a.initErr = a.init(ctx)
	})
	return a.initErr
}

func (a *Application) init(ctx context.Context) error {
	if err := a.caches.EnsureDirs(objectsCacheDir); err != nil {
		return fmt.Errorf("failed to prepare cache directories: %w", err)
	}

	if err := logging.SetGlobalLogger(a.Logger); err != nil {
		return fmt.Errorf("failed to set global logger: %w", err)
	}

	if a.Config.Translator.Watch {
		watcher := i18n.NewWatcher(a.translator, a.Logger, LanguageDirs(a.Config)...)
		go func() {
			if err := watcher.Start(ctx); err != nil {
				a.Logger.Error(err, "Language watcher stopped")
			}
		}()
	}

	if err := a.caches.StartPurgeSchedule(ctx, a.Config.Cache.PurgeSchedule); err != nil {
		return fmt.Errorf("failed to schedule cache purge: %w", err)
	}

	a.Logger.Info("Shelfline initialized",
		"environment", a.Config.Environment,
		"language", a.translator.Locale(),
		"cacheDir", a.caches.CacheDir(),
	)
	return nil
}

// serverParams are the services the admin server is built from
type serverParams struct {
	dig.In

	Config      *config.ShelflineConfig
	Logger      *logging.Logger
	Collector   *metrics.Collector
	Services    *di.Locator
	Runner      *search.Runner
	Tabs        *search.TabsHelper
	Backends    *search.BackendManager
	Recommend   *recommend.PluginManager
	AuthPlugins *auth.PluginManager
	Auth        *auth.Manager
	Sessions    *session.Manager
	Tags        *tags.Tags
	Translator  *i18n.Translator
	Adapters    *db.AdapterFactory
}

// NewServer builds the admin server from the container
func (a *Application) NewServer() (*server.Server, error) {
	p, err := di.Resolve[serverParams](a.Container)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve server dependencies: %w", err)
	}

	var collector *metrics.Collector
	if p.Config.Observability.Metrics.Enabled {
		collector = p.Collector
	}

	srv := server.New(p.Config.Observability.Server, server.Dependencies{
		Logger:      p.Logger,
		Collector:   collector,
		Services:    p.Services,
		Runner:      p.Runner,
		Tabs:        p.Tabs,
		Recommend:   p.Recommend,
		AuthPlugins: p.AuthPlugins,
		Auth:        p.Auth,
		Sessions:    p.Sessions,
		Tags:        p.Tags,
		Translator:  p.Translator,

		Recommendations: p.Config.Recommendations,
	})

	srv.Health().AddReadinessCheck("search-backends", func(context.Context) error {
		if len(p.Backends.Identifiers()) == 0 {
			return errors.New("no search backends configured")
		}
		return nil
	})
	srv.Health().AddReadinessCheck("database", func(ctx context.Context) error {
		if !p.Adapters.Opened() {
			return nil
		}
		adapter, err := p.Adapters.GetAdapter()
		if err != nil {
			return err
		}
		return adapter.PingContext(ctx)
	})

	return srv, nil
}

// Start initializes the application and serves until ctx is done or Stop
// is called
func (a *Application) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	if err := a.Init(ctx); err != nil {
		return err
	}

	if !a.Config.Observability.Server.Enabled {
		a.Logger.Info("Admin server disabled, waiting for shutdown")
		<-ctx.Done()
		return nil
	}

	srv, err := a.NewServer()
	if err != nil {
		return err
	}
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("admin server failed: %w", err)
	}
	return nil
}

// registerShutdownHooks lists the components Stop releases, in order
func (a *Application) registerShutdownHooks() {
	a.shutdown.Register("background-tasks", func(context.Context) error {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.cancel != nil {
			a.cancel()
		}
		return nil
	})
	a.shutdown.Register("database", func(context.Context) error {
		return a.adapters.Close()
	})
	a.shutdown.Register("logger", func(context.Context) error {
		// Sync fails on non-file outputs such as a terminal; nothing to report.
		_ = a.Logger.Sync()
		return nil
	})
}

// Stop stops background work and releases the database pool. Only the
// first call does anything.
func (a *Application) Stop(ctx context.Context) error {
	return a.shutdown.Shutdown(ctx, "stop requested")
}

// ShutdownStatus reports the progress of Stop
func (a *Application) ShutdownStatus() *ShutdownStatus {
	return a.shutdown.GetShutdownStatus()
}

// GetConfig returns the application configuration
func (a *Application) GetConfig() *config.ShelflineConfig {
	return a.Config
}

// NewApplication creates a new application with default configuration
func NewApplication(ctx context.Context) (*Application, error) {
	return NewApplicationBuilder().Build(ctx)
}

// NewApplicationWithConfig creates a new application with configuration from file
func NewApplicationWithConfig(ctx context.Context, configFile string) (*Application, error) {
	return NewApplicationBuilder().WithConfigFile(configFile).Build(ctx)
}
