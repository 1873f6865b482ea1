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

package search

import (
	"context"
	"sync"
)

// Event names
const (
	EventPre  = "pre"
	EventPost = "post"
)

// Event describes a search in progress. Pre listeners may modify Query;
// post listeners see the Result.
type Event struct {
	Name    string
	Backend string
	Query   *Query
	Result  *Collection
	Err     error
}

// Listener handles a search event. An error from a pre listener aborts the
// search.
type Listener func(ctx context.Context, e *Event) error

// EventManager dispatches search events to listeners in attach order
type EventManager struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

// NewEventManager creates an event manager without listeners
func NewEventManager() *EventManager {
	return &EventManager{listeners: make(map[string][]Listener)}
}

// Attach registers l for the named event
func (m *EventManager) Attach(name string, l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[name] = append(m.listeners[name], l)
}

// Trigger calls every listener for e.Name, stopping at the first error
func (m *EventManager) Trigger(ctx context.Context, e *Event) error {
	m.mu.RLock()
	listeners := append([]Listener(nil), m.listeners[e.Name]...)
	m.mu.RUnlock()

	for _, l := range listeners {
		if err := l(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
