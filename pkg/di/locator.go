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

package di

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Resolver resolves service identifiers to instances
type Resolver interface {
	Get(id string) (any, error)
}

// Factory builds the instance for an identifier. The resolver it receives
// resolves sibling services from the same locator.
type Factory func(r Resolver) (any, error)

// ResolutionObserver is notified after every resolution attempt
type ResolutionObserver interface {
	ObserveResolution(locator, id string, duration time.Duration, err error)
}

// LocatorOption configures a Locator
type LocatorOption func(*Locator)

// WithObserver attaches a resolution observer
func WithObserver(observer ResolutionObserver) LocatorOption {
	return func(l *Locator) {
		l.observer = observer
	}
}

// RegisterOption configures a single registration
type RegisterOption func(*registration)

// NotShared makes every Get build a fresh instance instead of caching one
func NotShared() RegisterOption {
	return func(r *registration) {
		r.shared = false
	}
}

type registration struct {
	factory Factory
	shared  bool
}

// Locator is a string-keyed service registry. Shared services are built on
// first request and cached for the lifetime of the locator.
type Locator struct {
	name     string
	observer ResolutionObserver

	mu        sync.RWMutex
	factories map[string]*registration
	aliases   map[string]string
	instances map[string]any

	flights singleflight.Group

	// flightMu guards owners and every resolution.waitingOn
	flightMu sync.Mutex
	owners   map[string]*resolution
}

// resolution is one top-level Get together with everything it builds. While
// it blocks on a flight started by another Get, waitingOn names that flight.
type resolution struct {
	waitingOn string
}

// NewLocator creates an empty locator. The name appears in errors and metrics.
func NewLocator(name string, opts ...LocatorOption) *Locator {
	l := &Locator{
		name:      name,
		factories: make(map[string]*registration),
		aliases:   make(map[string]string),
		instances: make(map[string]any),
		owners:    make(map[string]*resolution),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the locator name
func (l *Locator) Name() string {
	return l.name
}

// Register registers a factory for id
func (l *Locator) Register(id string, factory Factory, opts ...RegisterOption) error {
	if id == "" {
		return fmt.Errorf("%s: empty service identifier", l.name)
	}
	if factory == nil {
		return fmt.Errorf("%s: nil factory for %q", l.name, id)
	}

	reg := &registration{factory: factory, shared: true}
	for _, opt := range opts {
		opt(reg)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.factories[id]; exists {
		return &ResolutionError{Locator: l.name, ID: id, Err: ErrDuplicateService}
	}
	if _, exists := l.aliases[id]; exists {
		return &ResolutionError{Locator: l.name, ID: id, Err: ErrDuplicateService}
	}
	l.factories[id] = reg
	return nil
}

// MustRegister registers a factory and panics on error
func (l *Locator) MustRegister(id string, factory Factory, opts ...RegisterOption) {
	if err := l.Register(id, factory, opts...); err != nil {
		panic(fmt.Sprintf("failed to register service: %v", err))
	}
}

// Alias makes alias resolve to target
func (l *Locator) Alias(alias, target string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.factories[alias]; exists {
		return &ResolutionError{Locator: l.name, ID: alias, Err: ErrDuplicateService}
	}
	if _, exists := l.aliases[alias]; exists {
		return &ResolutionError{Locator: l.name, ID: alias, Err: ErrDuplicateService}
	}
	if _, exists := l.factories[target]; !exists {
		return &ResolutionError{Locator: l.name, ID: target, Err: ErrNotRegistered}
	}
	l.aliases[alias] = target
	return nil
}

// Has reports whether id (or an alias of it) is registered
func (l *Locator) Has(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.factories[l.canonical(id)]
	return ok
}

// IDs returns the registered identifiers in sorted order, aliases excluded
func (l *Locator) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.factories))
	for id := range l.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get resolves id
func (l *Locator) Get(id string) (any, error) {
	return l.resolve(id, nil, &resolution{})
}

// canonical maps an alias to its target. Callers hold l.mu.
func (l *Locator) canonical(id string) string {
	if target, ok := l.aliases[id]; ok {
		return target
	}
	return id
}

func (l *Locator) resolve(id string, chain []string, res *resolution) (any, error) {
	start := time.Now()
	instance, err := l.lookup(id, chain, res)
	if l.observer != nil {
		l.observer.ObserveResolution(l.name, id, time.Since(start), err)
	}
	return instance, err
}

func (l *Locator) lookup(id string, chain []string, res *resolution) (any, error) {
	l.mu.RLock()
	key := l.canonical(id)
	reg, registered := l.factories[key]
	instance, cached := l.instances[key]
	l.mu.RUnlock()

	if !registered {
		return nil, &ResolutionError{Locator: l.name, ID: id, Err: ErrNotRegistered}
	}
	if slices.Contains(chain, key) {
		return nil, &ResolutionError{
			Locator: l.name,
			ID:      id,
			Err:     fmt.Errorf("%w: %v", ErrCircularDependency, append(slices.Clone(chain), key)),
		}
	}
	if cached {
		return instance, nil
	}

	next := append(slices.Clone(chain), key)
	if !reg.shared {
		return l.build(key, reg, next, res)
	}

	if cycle := l.await(key, res); cycle != nil {
		return nil, &ResolutionError{
			Locator: l.name,
			ID:      id,
			Err:     fmt.Errorf("%w: %v", ErrCircularDependency, append(slices.Clone(chain), cycle...)),
		}
	}
	defer l.stopWaiting(res)

	v, err, _ := l.flights.Do(key, func() (any, error) {
		l.own(key, res)
		defer l.disown(key)

		l.mu.RLock()
		existing, ok := l.instances[key]
		l.mu.RUnlock()
		if ok {
			return existing, nil
		}

		built, err := l.build(key, reg, next, res)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.instances[key] = built
		l.mu.Unlock()
		return built, nil
	})
	return v, err
}

// await marks res as waiting for the flight of key. If the owner of that
// flight is itself waiting, directly or through other owners, for a flight
// res owns, waiting would deadlock; await then returns the cycle instead.
func (l *Locator) await(key string, res *resolution) []string {
	l.flightMu.Lock()
	defer l.flightMu.Unlock()

	path := []string{key}
	for owner := l.owners[key]; owner != nil; owner = l.owners[owner.waitingOn] {
		if owner == res {
			return path
		}
		if owner.waitingOn == "" || len(path) > len(l.owners) {
			break
		}
		path = append(path, owner.waitingOn)
	}
	res.waitingOn = key
	return nil
}

func (l *Locator) stopWaiting(res *resolution) {
	l.flightMu.Lock()
	res.waitingOn = ""
	l.flightMu.Unlock()
}

// own records res as the builder of key. Runs inside the flight, so res is
// building rather than waiting.
func (l *Locator) own(key string, res *resolution) {
	l.flightMu.Lock()
	l.owners[key] = res
	res.waitingOn = ""
	l.flightMu.Unlock()
}

func (l *Locator) disown(key string) {
	l.flightMu.Lock()
	delete(l.owners, key)
	l.flightMu.Unlock()
}

func (l *Locator) build(key string, reg *registration, chain []string, res *resolution) (any, error) {
	instance, err := reg.factory(&scopedResolver{locator: l, chain: chain, res: res})
	if err != nil {
		return nil, &ResolutionError{Locator: l.name, ID: key, Err: err}
	}
	if instance == nil {
		return nil, &ResolutionError{Locator: l.name, ID: key, Err: fmt.Errorf("factory returned nil")}
	}
	return instance, nil
}

// scopedResolver carries the chain of identifiers under construction
type scopedResolver struct {
	locator *Locator
	chain   []string
	res     *resolution
}

func (s *scopedResolver) Get(id string) (any, error) {
	return s.locator.resolve(id, s.chain, s.res)
}

func (s *scopedResolver) Name() string {
	return s.locator.name
}

// Get resolves id from r and asserts the instance to T
func Get[T any](r Resolver, id string) (T, error) {
	var zero T

	instance, err := r.Get(id)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		name := ""
		if named, isNamed := r.(interface{ Name() string }); isNamed {
			name = named.Name()
		}
		return zero, &ResolutionError{
			Locator: name,
			ID:      id,
			Err:     fmt.Errorf("%w: got %T", ErrTypeMismatch, instance),
		}
	}
	return typed, nil
}

// MustGet resolves id and panics on error
func MustGet[T any](r Resolver, id string) T {
	v, err := Get[T](r, id)
	if err != nil {
		panic(err)
	}
	return v
}
