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
	"time"

	"github.com/ahoma/shelfline/pkg/logging"
)

// ShutdownHook releases one component
type ShutdownHook func(ctx context.Context) error

// ShutdownState is the shutdown state of a component
type ShutdownState int

const (
	ShutdownStateUnknown ShutdownState = iota
	ShutdownStateStarted
	ShutdownStateCompleted
	ShutdownStateFailed
)

func (s ShutdownState) String() string {
	switch s {
	case ShutdownStateStarted:
		return "started"
	case ShutdownStateCompleted:
		return "completed"
	case ShutdownStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ComponentShutdownState records how one component shut down
type ComponentShutdownState struct {
	Name      string
	State     ShutdownState
	StartTime time.Time
	EndTime   time.Time
	Error     error
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// ShutdownManager runs the registered hooks once, in registration order.
// A failing hook does not stop the ones after it.
type ShutdownManager struct {
	timeout time.Duration
	logger  *logging.Logger

	mu              sync.RWMutex
	hooks           []namedHook
	started         bool
	reason          string
	startTime       time.Time
	componentStates map[string]ComponentShutdownState
}

// NewShutdownManager creates a shutdown manager. Hooks share one deadline of
// timeout; zero means 30 seconds.
func NewShutdownManager(timeout time.Duration, logger *logging.Logger) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ShutdownManager{
		timeout:         timeout,
		logger:          logger.WithName("shutdown-manager"),
		componentStates: make(map[string]ComponentShutdownState),
	}
}

// Register adds a hook for the named component
func (sm *ShutdownManager) Register(name string, hook ShutdownHook) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.hooks = append(sm.hooks, namedHook{name: name, hook: hook})
}

// Shutdown runs every hook. Only the first call does anything.
func (sm *ShutdownManager) Shutdown(ctx context.Context, reason string) error {
	sm.mu.Lock()
	if sm.started {
		sm.mu.Unlock()
		return nil
	}
	sm.started = true
	sm.reason = reason
	sm.startTime = time.Now()
	hooks := append([]namedHook(nil), sm.hooks...)
	sm.mu.Unlock()

	sm.logger.Info("Initiating shutdown", "reason", reason, "components", len(hooks))

	ctx, cancel := context.WithTimeout(ctx, sm.timeout)
	defer cancel()

	var errs []error
	for _, h := range hooks {
		sm.updateComponentState(h.name, ShutdownStateStarted, nil)
		if err := h.hook(ctx); err != nil {
			sm.updateComponentState(h.name, ShutdownStateFailed, err)
			sm.logger.Error(err, "Component shutdown failed", "component", h.name)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		sm.updateComponentState(h.name, ShutdownStateCompleted, nil)
	}

	sm.logger.Info("Shutdown completed", "duration", time.Since(sm.startTime).String(), "failures", len(errs))
	return errors.Join(errs...)
}

func (sm *ShutdownManager) updateComponentState(name string, state ShutdownState, err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	existing, exists := sm.componentStates[name]
	if !exists {
		existing = ComponentShutdownState{
			Name:      name,
			StartTime: time.Now(),
		}
	}

	existing.State = state
	existing.Error = err

	if state == ShutdownStateCompleted || state == ShutdownStateFailed {
		existing.EndTime = time.Now()
	}

	sm.componentStates[name] = existing
}

// GetShutdownStatus returns the current shutdown status
func (sm *ShutdownManager) GetShutdownStatus() *ShutdownStatus {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	components := make(map[string]ComponentShutdownState, len(sm.componentStates))
	for k, v := range sm.componentStates {
		components[k] = v
	}

	return &ShutdownStatus{
		Started:         sm.started,
		Reason:          sm.reason,
		StartTime:       sm.startTime,
		ComponentStates: components,
	}
}

// ShutdownStatus is a snapshot of the shutdown progress
type ShutdownStatus struct {
	Started         bool
	Reason          string
	StartTime       time.Time
	ComponentStates map[string]ComponentShutdownState
}

// IsCompleted reports whether every component finished, successfully or not
func (ss *ShutdownStatus) IsCompleted() bool {
	if !ss.Started {
		return false
	}

	for _, state := range ss.ComponentStates {
		if state.State != ShutdownStateCompleted && state.State != ShutdownStateFailed {
			return false
		}
	}

	return true
}

// HasErrors reports whether any component failed
func (ss *ShutdownStatus) HasErrors() bool {
	for _, state := range ss.ComponentStates {
		if state.State == ShutdownStateFailed || state.Error != nil {
			return true
		}
	}
	return false
}
