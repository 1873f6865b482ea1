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

// Package cache provides named, file-backed caches under a common root
// directory, with expiry by age and scheduled purging.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ahoma/shelfline/pkg/logging"
)

// ErrCacheUnavailable is returned when a named cache cannot be opened
var ErrCacheUnavailable = errors.New("cache unavailable")

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Cache stores byte values by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string) error
	// Purge removes expired entries and returns how many were removed
	Purge() (int, error)
}

// Manager hands out named caches below one directory
type Manager struct {
	dir    string
	ttl    time.Duration
	logger *logging.Logger

	mu     sync.Mutex
	caches map[string]*FileCache
	cron   *cron.Cron
}

// NewManager creates a cache manager rooted at dir. A zero ttl disables expiry.
func NewManager(dir string, ttl time.Duration, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		dir:    dir,
		ttl:    ttl,
		logger: logger.WithName("cache"),
		caches: make(map[string]*FileCache),
	}
}

// CacheDir returns the root cache directory
func (m *Manager) CacheDir() string {
	return m.dir
}

// EnsureDirs creates the root cache directory and the given subdirectories
func (m *Manager) EnsureDirs(subdirs ...string) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", m.dir, err)
	}
	for _, sub := range subdirs {
		path := filepath.Join(m.dir, sub)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create cache directory %s: %w", path, err)
		}
	}
	return nil
}

// GetCache returns the named cache, creating its directory on first use
func (m *Manager) GetCache(name string) (Cache, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: invalid cache name %q", ErrCacheUnavailable, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.caches[name]; ok {
		return c, nil
	}

	dir := filepath.Join(m.dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCacheUnavailable, name, err)
	}

	c := &FileCache{dir: dir, ttl: m.ttl}
	m.caches[name] = c
	return c, nil
}

// Names returns the names of the caches opened so far
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Purge removes expired entries from every open cache
func (m *Manager) Purge() (int, error) {
	m.mu.Lock()
	caches := make([]*FileCache, 0, len(m.caches))
	for _, c := range m.caches {
		caches = append(caches, c)
	}
	m.mu.Unlock()

	total := 0
	var errs []error
	for _, c := range caches {
		n, err := c.Purge()
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// StartPurgeSchedule runs Purge on the given cron schedule until ctx is done.
// An empty schedule does nothing.
func (m *Manager) StartPurgeSchedule(ctx context.Context, schedule string) error {
	if schedule == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cron != nil {
		return fmt.Errorf("purge schedule already started")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		removed, err := m.Purge()
		if err != nil {
			m.logger.Error(err, "Cache purge failed", "removed", removed)
			return
		}
		m.logger.Info("Cache purge completed", "removed", removed)
	}); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}

	c.Start()
	m.cron = c

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()

	return nil
}

// FileCache is a cache stored as one file per key
type FileCache struct {
	dir string
	ttl time.Duration
	mu  sync.RWMutex
}

// Dir returns the directory backing the cache
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:]))
}

func (c *FileCache) expired(modTime time.Time) bool {
	return c.ttl > 0 && time.Since(modTime) > c.ttl
}

// Get returns the value for key if it exists and has not expired
func (c *FileCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil || c.expired(info.ModTime()) {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores value under key
func (c *FileCache) Set(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes key; a missing key is not an error
func (c *FileCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Purge removes expired entries
func (c *FileCache) Purge() (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache %s: %w", c.dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if c.expired(info.ModTime()) {
			if err := os.Remove(filepath.Join(c.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
