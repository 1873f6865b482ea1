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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownManagerRunsHooksInOrder(t *testing.T) {
	sm := NewShutdownManager(time.Second, nil)

	var order []string
	for _, name := range []string{"server", "database", "logger"} {
		sm.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	assert.Equal(t, []string{"server", "database", "logger"}, order)

	status := sm.GetShutdownStatus()
	assert.True(t, status.Started)
	assert.True(t, status.IsCompleted())
	assert.False(t, status.HasErrors())
	for _, state := range status.ComponentStates {
		assert.Equal(t, ShutdownStateCompleted, state.State)
		assert.False(t, state.EndTime.Before(state.StartTime))
	}
}

func TestShutdownManagerContinuesAfterFailure(t *testing.T) {
	sm := NewShutdownManager(time.Second, nil)

	ran := false
	sm.Register("database", func(context.Context) error { return errors.New("close failed") })
	sm.Register("logger", func(context.Context) error {
		ran = true
		return nil
	})

	err := sm.Shutdown(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database: close failed")
	assert.True(t, ran)

	status := sm.GetShutdownStatus()
	assert.True(t, status.HasErrors())
	assert.Equal(t, ShutdownStateFailed, status.ComponentStates["database"].State)
	assert.Equal(t, ShutdownStateCompleted, status.ComponentStates["logger"].State)
}

func TestShutdownManagerRunsOnce(t *testing.T) {
	sm := NewShutdownManager(0, nil)

	calls := 0
	sm.Register("server", func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, sm.Shutdown(context.Background(), "first"))
	require.NoError(t, sm.Shutdown(context.Background(), "second"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "first", sm.GetShutdownStatus().Reason)
}

func TestShutdownManagerDeadline(t *testing.T) {
	sm := NewShutdownManager(10*time.Millisecond, nil)
	sm.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := sm.Shutdown(context.Background(), "test")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShutdownStateString(t *testing.T) {
	assert.Equal(t, "unknown", ShutdownStateUnknown.String())
	assert.Equal(t, "started", ShutdownStateStarted.String())
	assert.Equal(t, "completed", ShutdownStateCompleted.String())
	assert.Equal(t, "failed", ShutdownStateFailed.String())
	assert.False(t, (&ShutdownStatus{}).IsCompleted())
}
