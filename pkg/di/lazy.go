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
	"errors"
	"sync"
	"sync/atomic"
)

// LazyState is the initialization state of a Lazy value
type LazyState int32

const (
	LazyUninitialized LazyState = iota
	LazyInitializing
	LazyInitialized
)

func (s LazyState) String() string {
	switch s {
	case LazyInitializing:
		return "initializing"
	case LazyInitialized:
		return "initialized"
	default:
		return "uninitialized"
	}
}

// Lazy holds either a build function or the value it produced. The build
// function runs on the first Get and, once it succeeds, never again. A failed
// build leaves the value uninitialized so the next Get tries again.
type Lazy[T any] struct {
	mu    sync.Mutex
	state atomic.Int32
	build func() (T, error)
	value T
}

// NewLazy creates a lazy value around build
func NewLazy[T any](build func() (T, error)) *Lazy[T] {
	return &Lazy[T]{build: build}
}

// Get returns the value, building it first if needed
func (z *Lazy[T]) Get() (T, error) {
	if LazyState(z.state.Load()) == LazyInitialized {
		return z.value, nil
	}

	z.mu.Lock()
	defer z.mu.Unlock()

	if LazyState(z.state.Load()) == LazyInitialized {
		return z.value, nil
	}

	var zero T
	if z.build == nil {
		return zero, errors.New("lazy value has no initializer")
	}

	z.state.Store(int32(LazyInitializing))
	v, err := z.build()
	if err != nil {
		z.state.Store(int32(LazyUninitialized))
		return zero, err
	}

	z.value = v
	z.build = nil
	z.state.Store(int32(LazyInitialized))
	return v, nil
}

// State returns the current initialization state
func (z *Lazy[T]) State() LazyState {
	return LazyState(z.state.Load())
}

// Initialized reports whether the value has been built
func (z *Lazy[T]) Initialized() bool {
	return z.State() == LazyInitialized
}
