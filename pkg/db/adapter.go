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

// Package db opens the application database.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT NOT NULL,
    namespace  TEXT NOT NULL,
    data       TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (session_id, namespace)
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
`

// AdapterFactory opens the database connection pool from configuration.
// The pool is opened on first use and shared afterwards.
type AdapterFactory struct {
	cfg    config.DatabaseConfig
	logger *logging.Logger

	mu sync.Mutex
	db *sql.DB
}

// NewAdapterFactory creates an adapter factory
func NewAdapterFactory(cfg config.DatabaseConfig, logger *logging.Logger) *AdapterFactory {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AdapterFactory{cfg: cfg, logger: logger.WithName("db")}
}

// GetAdapter returns the connection pool, opening it, verifying the
// connection and applying the schema on first use. Failures are not cached.
func (f *AdapterFactory) GetAdapter() (*sql.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.db != nil {
		return f.db, nil
	}
	db, err := f.open()
	if err != nil {
		return nil, err
	}
	f.db = db
	return db, nil
}

// Opened reports whether the pool has been opened
func (f *AdapterFactory) Opened() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.db != nil
}

// Close closes the pool if it was opened
func (f *AdapterFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.db == nil {
		return nil
	}
	err := f.db.Close()
	f.db = nil
	return err
}

func (f *AdapterFactory) open() (*sql.DB, error) {
	driver := f.cfg.Driver
	if driver == "" {
		driver = "sqlite3"
	}

	if path := filePath(f.cfg.DSN); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, f.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if f.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(f.cfg.MaxOpenConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	f.logger.V(1).Info("Database adapter ready", "driver", driver)
	return db, nil
}

// filePath extracts the file path of a sqlite DSN, or "" for in-memory databases
func filePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}
