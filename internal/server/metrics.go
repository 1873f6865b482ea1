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
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahoma/shelfline/pkg/metrics"
)

// MetricsServer serves the Shelfline metrics from a private registry
type MetricsServer struct {
	collector *metrics.Collector
	registry  *prometheus.Registry

	mu                sync.RWMutex
	customMetrics     map[string]prometheus.Collector
	lastCollection    time.Time
	collectionLatency time.Duration
}

// NewMetricsServer creates a new metrics server instance
func NewMetricsServer(collector *metrics.Collector) *MetricsServer {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	if collector != nil {
		collector.RegisterMetrics(registry)
	}

	return &MetricsServer{
		collector:     collector,
		registry:      registry,
		customMetrics: make(map[string]prometheus.Collector),
	}
}

// Registry returns the registry backing /metrics
func (m *MetricsServer) Registry() *prometheus.Registry {
	return m.registry
}

// MetricsHandler implements the /metrics endpoint
func (m *MetricsServer) MetricsHandler(c *gin.Context) {
	start := time.Now()
	defer func() {
		m.mu.Lock()
		m.lastCollection = time.Now()
		m.collectionLatency = time.Since(start)
		m.mu.Unlock()
	}()

	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
		Registry:      m.registry,
		Timeout:       30 * time.Second,
	})

	gin.WrapH(handler)(c)
}

// SnapshotHandler returns the collector's counters as JSON
func (m *MetricsServer) SnapshotHandler(c *gin.Context) {
	if m.collector == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "metrics collection is disabled",
			"code":  "METRICS_DISABLED",
		})
		return
	}

	m.mu.RLock()
	lastCollection := m.lastCollection
	latency := m.collectionLatency
	m.mu.RUnlock()

	scrape := gin.H{"latency_ms": latency.Milliseconds()}
	if !lastCollection.IsZero() {
		scrape["last_collection"] = lastCollection.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, gin.H{
		"metrics": m.collector.GetMetricsSnapshot(),
		"scrape":  scrape,
	})
}

// RegisterCustomMetric registers an additional Prometheus collector
func (m *MetricsServer) RegisterCustomMetric(name string, metric prometheus.Collector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.customMetrics[name]; exists {
		return fmt.Errorf("metric %s already registered", name)
	}

	if err := m.registry.Register(metric); err != nil {
		return fmt.Errorf("failed to register metric %s: %w", name, err)
	}

	m.customMetrics[name] = metric
	return nil
}

// UnregisterCustomMetric removes a collector added with RegisterCustomMetric
func (m *MetricsServer) UnregisterCustomMetric(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	metric, exists := m.customMetrics[name]
	if !exists {
		return fmt.Errorf("metric %s not found", name)
	}

	if !m.registry.Unregister(metric) {
		return fmt.Errorf("failed to unregister metric %s", name)
	}

	delete(m.customMetrics, name)
	return nil
}
