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

// Package server provides the admin HTTP surface: health checks, metrics and
// a small JSON API over the Shelfline services.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Check is a named readiness probe
type Check func(ctx context.Context) error

// HealthChecker provides liveness and readiness endpoints
type HealthChecker struct {
	startTime time.Time

	mu              sync.RWMutex
	checks          map[string]Check
	unhealthyReason string
	notReadyReason  string
}

// NewHealthChecker creates a new health checker instance
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		checks:    make(map[string]Check),
	}
}

// AddReadinessCheck registers a probe consulted by /readyz
func (h *HealthChecker) AddReadinessCheck(name string, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// HealthzHandler implements the /healthz endpoint.
// Returns 200 OK while the process is running and not marked unhealthy.
func (h *HealthChecker) HealthzHandler(c *gin.Context) {
	h.mu.RLock()
	unhealthyReason := h.unhealthyReason
	h.mu.RUnlock()

	uptime := time.Since(h.startTime)
	if unhealthyReason != "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"reason": unhealthyReason,
			"uptime": uptime.String(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"uptime": uptime.String(),
	})
}

// ReadyzHandler implements the /readyz endpoint.
// Returns 200 OK only if every readiness check passes.
func (h *HealthChecker) ReadyzHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	h.mu.RLock()
	notReadyReason := h.notReadyReason
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]string, len(names)+1)
	healthy := true

	if notReadyReason != "" {
		results["manual-check"] = fmt.Sprintf("not ready: %s", notReadyReason)
		healthy = false
	}

	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			results[name] = fmt.Sprintf("failed: %v", err)
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	status := "ready"
	statusCode := http.StatusOK
	if !healthy {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status": status,
		"checks": results,
		"uptime": time.Since(h.startTime).String(),
	})
}

// SetUnhealthy marks the process unhealthy
func (h *HealthChecker) SetUnhealthy(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unhealthyReason = reason
}

// SetNotReady marks the process not ready
func (h *HealthChecker) SetNotReady(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notReadyReason = reason
}

// ClearUnhealthy clears the unhealthy state
func (h *HealthChecker) ClearUnhealthy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unhealthyReason = ""
}

// ClearNotReady clears the not ready state
func (h *HealthChecker) ClearNotReady() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notReadyReason = ""
}
