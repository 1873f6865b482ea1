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

// Package session keeps per-visitor state in namespaced containers.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahoma/shelfline/pkg/logging"
)

// ErrNoSession is returned when the context carries no session id
var ErrNoSession = errors.New("no session in context")

// Data is the contents of one namespace of one session
type Data map[string]json.RawMessage

// Store persists session data
type Store interface {
	Load(ctx context.Context, sessionID, namespace string) (Data, error)
	Save(ctx context.Context, sessionID, namespace string, data Data) error
	Destroy(ctx context.Context, sessionID string) error
	// Purge removes sessions not updated since before
	Purge(ctx context.Context, before time.Time) (int, error)
}

// WithID returns a context carrying sessionID
func WithID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, logging.SessionIDKey, sessionID)
}

// IDFromContext returns the session id carried by ctx
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(logging.SessionIDKey).(string)
	return id, ok && id != ""
}

// Manager hands out session containers over a store. Writes to one session
// are serialized within the process; separate processes sharing a database
// store still overwrite each other's namespace writes.
type Manager struct {
	store      Store
	cookieName string
	lifetime   time.Duration
	locks      *sessionLocks
}

// NewManager creates a session manager
func NewManager(store Store, cookieName string, lifetime time.Duration) *Manager {
	return &Manager{
		store:      store,
		cookieName: cookieName,
		lifetime:   lifetime,
		locks:      &sessionLocks{held: make(map[string]*sessionLock)},
	}
}

type sessionLock struct {
	sync.Mutex
	refs int
}

// sessionLocks hands out one mutex per session id while it is in use
type sessionLocks struct {
	mu   sync.Mutex
	held map[string]*sessionLock
}

func (s *sessionLocks) lock(sessionID string) (unlock func()) {
	s.mu.Lock()
	l, ok := s.held[sessionID]
	if !ok {
		l = &sessionLock{}
		s.held[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.held, sessionID)
		}
		s.mu.Unlock()
	}
}

// CookieName returns the name of the session cookie
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Lifetime returns the idle lifetime of a session
func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

// Start returns a context carrying sessionID, or a fresh id when sessionID is
// not a valid session id
func (m *Manager) Start(ctx context.Context, sessionID string) (context.Context, string) {
	if _, err := uuid.Parse(sessionID); err != nil {
		sessionID = uuid.NewString()
	}
	return WithID(ctx, sessionID), sessionID
}

// Destroy removes every namespace of the session in ctx
func (m *Manager) Destroy(ctx context.Context) error {
	id, ok := IDFromContext(ctx)
	if !ok {
		return ErrNoSession
	}
	return m.store.Destroy(ctx, id)
}

// PurgeExpired removes sessions idle for longer than the lifetime
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	return m.store.Purge(ctx, time.Now().Add(-m.lifetime))
}

// Container returns the container for namespace
func (m *Manager) Container(namespace string) *Container {
	return &Container{namespace: namespace, store: m.store, locks: m.locks}
}

// Container is a namespaced view of the current session
type Container struct {
	namespace string
	store     Store
	locks     *sessionLocks
}

// Namespace returns the container namespace
func (c *Container) Namespace() string {
	return c.namespace
}

func (c *Container) load(ctx context.Context) (string, Data, error) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return "", nil, ErrNoSession
	}
	data, err := c.store.Load(ctx, id, c.namespace)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load session %s: %w", c.namespace, err)
	}
	if data == nil {
		data = Data{}
	}
	return id, data, nil
}

// Get decodes the value stored under key into out. It reports false when
// the key is absent.
func (c *Container) Get(ctx context.Context, key string, out any) (bool, error) {
	_, data, err := c.load(ctx)
	if err != nil {
		return false, err
	}
	raw, ok := data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode session value %s.%s: %w", c.namespace, key, err)
	}
	return true, nil
}

// update runs a load, modify, save cycle under the session lock. modify
// reports whether data changed.
func (c *Container) update(ctx context.Context, modify func(Data) bool) error {
	id, ok := IDFromContext(ctx)
	if !ok {
		return ErrNoSession
	}
	unlock := c.locks.lock(id)
	defer unlock()

	_, data, err := c.load(ctx)
	if err != nil {
		return err
	}
	if !modify(data) {
		return nil
	}
	return c.store.Save(ctx, id, c.namespace, data)
}

// Set stores value under key
func (c *Container) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode session value %s.%s: %w", c.namespace, key, err)
	}
	return c.update(ctx, func(data Data) bool {
		data[key] = raw
		return true
	})
}

// Delete removes key
func (c *Container) Delete(ctx context.Context, key string) error {
	return c.update(ctx, func(data Data) bool {
		if _, ok := data[key]; !ok {
			return false
		}
		delete(data, key)
		return true
	})
}

// Clear removes every key in the namespace
func (c *Container) Clear(ctx context.Context) error {
	id, ok := IDFromContext(ctx)
	if !ok {
		return ErrNoSession
	}
	return c.store.Save(ctx, id, c.namespace, Data{})
}
