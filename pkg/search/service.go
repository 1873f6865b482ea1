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
	"math/rand/v2"
	"time"
)

// Observer receives one call per backend search
type Observer interface {
	ObserveSearch(backend string, duration time.Duration, err error)
}

// Service runs searches, surrounding each with pre and post events
type Service struct {
	events   *EventManager
	backends *BackendManager
	observer Observer
}

// NewService creates a search service
func NewService(events *EventManager, backends *BackendManager, observer Observer) *Service {
	if events == nil {
		events = NewEventManager()
	}
	return &Service{events: events, backends: backends, observer: observer}
}

// Events returns the event manager
func (s *Service) Events() *EventManager {
	return s.events
}

// Backends returns the backend manager
func (s *Service) Backends() *BackendManager {
	return s.backends
}

// Search runs q against the named backend
func (s *Service) Search(ctx context.Context, backend string, q Query) (*Collection, error) {
	start := time.Now()
	result, err := s.search(ctx, backend, q)
	if s.observer != nil {
		s.observer.ObserveSearch(backend, time.Since(start), err)
	}
	return result, err
}

func (s *Service) search(ctx context.Context, backend string, q Query) (*Collection, error) {
	b, err := s.backends.Get(backend)
	if err != nil {
		return nil, err
	}

	event := &Event{Name: EventPre, Backend: backend, Query: &q}
	if err := s.events.Trigger(ctx, event); err != nil {
		return nil, err
	}

	result, err := b.Search(ctx, *event.Query)

	post := &Event{Name: EventPost, Backend: backend, Query: event.Query, Result: result, Err: err}
	if trigErr := s.events.Trigger(ctx, post); trigErr != nil && err == nil {
		err = trigErr
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Random returns up to limit records matching q in random order
func (s *Service) Random(ctx context.Context, backend string, q Query, limit int) (*Collection, error) {
	q = q.Clone()
	q.Random = true
	q.Offset = 0
	q.Limit = limit

	result, err := s.Search(ctx, backend, q)
	if err != nil {
		return nil, err
	}

	// Backends without random sort return relevance order
	rand.Shuffle(len(result.Records), func(i, j int) {
		result.Records[i], result.Records[j] = result.Records[j], result.Records[i]
	})
	if len(result.Records) > limit {
		result.Records = result.Records[:limit]
	}
	return result, nil
}
