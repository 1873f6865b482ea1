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

// Package metrics provides Prometheus metrics collection and recording
// for service construction, outbound calls and searches.
package metrics

import (
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Service construction metrics
	serviceResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfline_service_resolutions_total",
			Help: "Total number of service resolutions by locator, service and result",
		},
		[]string{"locator", "service", "result"},
	)

	serviceResolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfline_service_resolution_duration_seconds",
			Help:    "Time spent resolving services, including construction on first use",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"locator"},
	)

	lazyInitializations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfline_lazy_initializations_total",
			Help: "Total number of lazy proxy initialization attempts",
		},
		[]string{"service", "result"},
	)

	cacheFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfline_cache_fallbacks_total",
			Help: "Total number of services constructed without their cache",
		},
		[]string{"service", "cache"},
	)

	// Outbound metrics
	outboundRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfline_outbound_requests_total",
			Help: "Total number of outbound HTTP requests",
		},
		[]string{"host", "result"},
	)

	searchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfline_search_requests_total",
			Help: "Total number of backend searches",
		},
		[]string{"backend", "result"},
	)
)

// Collector handles metrics collection for Shelfline
type Collector struct {
	mutex       sync.RWMutex
	lastUpdate  time.Time
	resolutions int
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	initializeMetrics()

	return &Collector{
		lastUpdate: time.Now(),
	}
}

// initializeMetrics initializes metrics with zero values so they appear in
// Prometheus output before anything is recorded
func initializeMetrics() {
	serviceResolutions.WithLabelValues("", "", "success").Add(0)
	lazyInitializations.WithLabelValues("", "success").Add(0)
	cacheFallbacks.WithLabelValues("", "").Add(0)
	outboundRequests.WithLabelValues("", "success").Add(0)
	searchRequests.WithLabelValues("", "success").Add(0)
}

// RegisterMetrics registers all Shelfline metrics with the provided registry
func (c *Collector) RegisterMetrics(registry prometheus.Registerer) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	collectors := []prometheus.Collector{
		serviceResolutions,
		serviceResolutionDuration,
		lazyInitializations,
		cacheFallbacks,
		outboundRequests,
		searchRequests,
	}

	for _, collector := range collectors {
		// Already-registered errors are expected when several containers share a process.
		_ = registry.Register(collector)
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveResolution records a locator resolution
func (c *Collector) ObserveResolution(locator, id string, duration time.Duration, err error) {
	c.mutex.Lock()
	c.resolutions++
	c.lastUpdate = time.Now()
	c.mutex.Unlock()

	serviceResolutions.WithLabelValues(locator, id, result(err)).Inc()
	serviceResolutionDuration.WithLabelValues(locator).Observe(duration.Seconds())
}

// RecordLazyInitialization records a lazy proxy initialization attempt
func (c *Collector) RecordLazyInitialization(service string, err error) {
	lazyInitializations.WithLabelValues(service, result(err)).Inc()
}

// RecordCacheFallback records a service that was built without its cache
func (c *Collector) RecordCacheFallback(service, cache string) {
	cacheFallbacks.WithLabelValues(service, cache).Inc()
}

// ObserveRequest records an outbound HTTP request
func (c *Collector) ObserveRequest(target string, _ time.Duration, err error) {
	host := target
	if u, parseErr := url.Parse(target); parseErr == nil && u.Host != "" {
		host = u.Host
	}
	outboundRequests.WithLabelValues(host, result(err)).Inc()
}

// ObserveSearch records a backend search
func (c *Collector) ObserveSearch(backend string, _ time.Duration, err error) {
	searchRequests.WithLabelValues(backend, result(err)).Inc()
}

// GetMetricsSnapshot returns a snapshot of current metrics values
func (c *Collector) GetMetricsSnapshot() Snapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return Snapshot{
		LastUpdate:  c.lastUpdate,
		Timestamp:   time.Now(),
		Resolutions: c.resolutions,
	}
}

// Snapshot represents a point-in-time snapshot of metrics
type Snapshot struct {
	LastUpdate  time.Time `json:"lastUpdate"`
	Timestamp   time.Time `json:"timestamp"`
	Resolutions int       `json:"resolutions"`
}

// ResetMetrics resets all metrics (useful for testing)
func (c *Collector) ResetMetrics() {
	c.mutex.Lock()
	c.resolutions = 0
	c.mutex.Unlock()

	serviceResolutions.Reset()
	serviceResolutionDuration.Reset()
	lazyInitializations.Reset()
	cacheFallbacks.Reset()
	outboundRequests.Reset()
	searchRequests.Reset()
}
