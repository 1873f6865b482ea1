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

// Package auth implements the login strategies and the account manager
// that selects between them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ahoma/shelfline/pkg/logging"
	"github.com/ahoma/shelfline/pkg/session"
)

var (
	// ErrInvalidCredentials is returned when a strategy rejects the supplied credentials
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotLoggedIn is returned when an operation needs a logged-in user
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrMethodNotAllowed is returned when a strategy is not among the configured choices
	ErrMethodNotAllowed = errors.New("authentication method not allowed")
)

// AccountNamespace is the session namespace holding the logged-in user
const AccountNamespace = "Account"

// User is a logged-in account
type User struct {
	Username    string `json:"username"`
	FirstName   string `json:"firstname,omitempty"`
	LastName    string `json:"lastname,omitempty"`
	Email       string `json:"email,omitempty"`
	CatUsername string `json:"cat_username,omitempty"`
	CatPassword string `json:"cat_password,omitempty"`
	AuthMethod  string `json:"auth_method"`
}

// Authenticator is a login strategy
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (*User, error)
}

// SessionInitiator is implemented by strategies that log in through an
// external site. It returns the URL to send the browser to.
type SessionInitiator interface {
	SessionInitiator(ctx context.Context, target string) (string, error)
}

// Manager logs users in with the configured strategy and keeps the
// logged-in user in the session
type Manager struct {
	method   string
	plugins  *PluginManager
	sessions *session.Manager
	logger   *logging.Logger
}

// NewManager creates an account manager
func NewManager(method string, plugins *PluginManager, sessions *session.Manager, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		method:   method,
		plugins:  plugins,
		sessions: sessions,
		logger:   logger.WithName("auth-manager"),
	}
}

// Method returns the configured strategy name
func (m *Manager) Method() string {
	return m.method
}

// Authenticator returns the configured strategy
func (m *Manager) Authenticator() (Authenticator, error) {
	return m.plugins.Get(m.method)
}

// Login authenticates r and stores the user in the session
func (m *Manager) Login(ctx context.Context, r *http.Request) (*User, error) {
	authenticator, err := m.Authenticator()
	if err != nil {
		return nil, err
	}

	user, err := authenticator.Authenticate(ctx, r)
	if err != nil {
		m.logger.WithContext(ctx).V(1).Info("Login failed", "method", m.method, "error", err.Error())
		return nil, err
	}
	if user.AuthMethod == "" {
		user.AuthMethod = m.method
	}

	if err := m.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	m.logger.WithContext(ctx).Info("User logged in", "username", user.Username, "method", user.AuthMethod)
	return user, nil
}

// Logout forgets the logged-in user
func (m *Manager) Logout(ctx context.Context) error {
	return m.sessions.Container(AccountNamespace).Clear(ctx)
}

// CurrentUser returns the logged-in user
func (m *Manager) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	found, err := m.sessions.Container(AccountNamespace).Get(ctx, "user", &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotLoggedIn
	}
	return &user, nil
}

// UpdateUser stores user as the logged-in user
func (m *Manager) UpdateUser(ctx context.Context, user *User) error {
	if err := m.sessions.Container(AccountNamespace).Set(ctx, "user", user); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}
