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

package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

type memoryEntry struct {
	data    Data
	updated time.Time
}

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*memoryEntry
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]map[string]*memoryEntry)}
}

// Load implements Store
func (s *MemoryStore) Load(_ context.Context, sessionID, namespace string) (Data, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[sessionID][namespace]
	if !ok {
		return nil, nil
	}
	return maps.Clone(entry.data), nil
}

// Save implements Store
func (s *MemoryStore) Save(_ context.Context, sessionID, namespace string, data Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	namespaces, ok := s.sessions[sessionID]
	if !ok {
		namespaces = make(map[string]*memoryEntry)
		s.sessions[sessionID] = namespaces
	}
	namespaces[namespace] = &memoryEntry{data: maps.Clone(data), updated: time.Now()}
	return nil
}

// Destroy implements Store
func (s *MemoryStore) Destroy(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Purge implements Store
func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, namespaces := range s.sessions {
		for ns, entry := range namespaces {
			if entry.updated.Before(before) {
				delete(namespaces, ns)
				removed++
			}
		}
		if len(namespaces) == 0 {
			delete(s.sessions, id)
		}
	}
	return removed, nil
}

// SQLStore keeps sessions in the sessions table of the application database
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over db
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Load implements Store
func (s *SQLStore) Load(ctx context.Context, sessionID, namespace string) (Data, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE session_id = ? AND namespace = ?`,
		sessionID, namespace).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return data, nil
}

// Save implements Store
func (s *SQLStore) Save(ctx context.Context, sessionID, namespace string, data Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, namespace, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, namespace) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		sessionID, namespace, string(raw), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Destroy implements Store
func (s *SQLStore) Destroy(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// Purge implements Store
func (s *SQLStore) Purge(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
