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


package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahoma/shelfline/pkg/auth"
	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/di"
	"github.com/ahoma/shelfline/pkg/i18n"
	"github.com/ahoma/shelfline/pkg/logging"
	"github.com/ahoma/shelfline/pkg/metrics"
	"github.com/ahoma/shelfline/pkg/recommend"
	"github.com/ahoma/shelfline/pkg/search"
	"github.com/ahoma/shelfline/pkg/session"
	"github.com/ahoma/shelfline/pkg/tags"
)

// Dependencies are the services the admin server exposes
type Dependencies struct {
	Logger      *logging.Logger
	Collector   *metrics.Collector
	Services    *di.Locator
	Runner      *search.Runner
	Tabs        *search.TabsHelper
	Recommend   *recommend.PluginManager
	AuthPlugins *auth.PluginManager
	Auth        *auth.Manager
	Sessions    *session.Manager
	Tags        *tags.Tags
	Translator  *i18n.Translator

	// Recommendations maps a backend or tab id to its enabled module specs
	Recommendations map[string][]string
}

// Server is the admin HTTP server
type Server struct {
	cfg     config.ServerConfig
	deps    Dependencies
	engine  *gin.Engine
	health  *HealthChecker
	metrics *MetricsServer
}

// New builds the server and its routes
func New(cfg config.ServerConfig, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	deps.Logger = deps.Logger.WithName("server")

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		engine:  gin.New(),
		health:  NewHealthChecker(),
		metrics: NewMetricsServer(deps.Collector),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery(), RequestID(), AccessLog(s.deps.Logger))

	s.engine.GET("/healthz", s.health.HealthzHandler)
	s.engine.GET("/readyz", s.health.ReadyzHandler)
	s.engine.GET("/metrics", s.metrics.MetricsHandler)
	s.engine.GET("/metrics/snapshot", s.metrics.SnapshotHandler)

	api := s.engine.Group("/api/v1")
	if s.deps.Sessions != nil {
		api.Use(Sessions(s.deps.Sessions))
	}
	api.GET("/services", s.servicesHandler)
	if s.deps.Runner != nil && s.deps.Recommend != nil && s.deps.Tabs != nil {
		api.GET("/tabs", s.tabsHandler)
		api.GET("/search", s.searchHandler)
	}
	if s.deps.Tags != nil {
		api.POST("/tags/parse", s.parseTagsHandler)
	}
	if s.deps.Translator != nil {
		api.GET("/translate/:key", s.translateHandler)
	}
	if s.deps.Auth != nil && s.deps.Sessions != nil {
		api.POST("/auth/login", s.loginHandler)
		api.POST("/auth/logout", s.logoutHandler)
		api.GET("/auth/user", s.userHandler)
	}
}

// Health returns the health checker so callers can add readiness checks
func (s *Server) Health() *HealthChecker {
	return s.health
}

// Metrics returns the metrics server
func (s *Server) Metrics() *MetricsServer {
	return s.metrics
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.BindAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.BindAddress, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("Starting admin server", "address", listener.Addr().String())
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.deps.Logger.Info("Shutting down admin server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin server shutdown failed: %w", err)
	}
	return nil
}
