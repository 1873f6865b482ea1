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

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/ahoma/shelfline/pkg/di"
	"github.com/ahoma/shelfline/pkg/ils"
)

// ILSAuthenticator logs patrons into the catalog
type ILSAuthenticator interface {
	// NewCatalogLogin checks credentials against the catalog and, when a user
	// is logged in, remembers them
	NewCatalogLogin(ctx context.Context, username, password string) (*ils.Patron, error)
	// StoredCatalogLogin logs in with the credentials of the current user
	StoredCatalogLogin(ctx context.Context) (*ils.Patron, error)
}

// CatalogAuthenticator is the ILSAuthenticator over an ILS connection
type CatalogAuthenticator struct {
	manager *Manager
	conn    ils.Connection
}

// NewCatalogAuthenticator creates a catalog authenticator
func NewCatalogAuthenticator(manager *Manager, conn ils.Connection) *CatalogAuthenticator {
	return &CatalogAuthenticator{manager: manager, conn: conn}
}

// NewCatalogLogin implements ILSAuthenticator
func (a *CatalogAuthenticator) NewCatalogLogin(ctx context.Context, username, password string) (*ils.Patron, error) {
	patron, err := a.conn.PatronLogin(ctx, username, password)
	if err != nil {
		if errors.Is(err, ils.ErrLoginFailed) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return nil, err
	}

	user, err := a.manager.CurrentUser(ctx)
	if err == nil {
		user.CatUsername = username
		user.CatPassword = password
		if err := a.manager.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
	}
	return patron, nil
}

// StoredCatalogLogin implements ILSAuthenticator. Stored credentials the
// catalog rejects are forgotten.
func (a *CatalogAuthenticator) StoredCatalogLogin(ctx context.Context) (*ils.Patron, error) {
	user, err := a.manager.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user.CatUsername == "" {
		return nil, ErrInvalidCredentials
	}

	patron, err := a.conn.PatronLogin(ctx, user.CatUsername, user.CatPassword)
	if errors.Is(err, ils.ErrLoginFailed) {
		user.CatUsername, user.CatPassword = "", ""
		if uErr := a.manager.UpdateUser(ctx, user); uErr != nil {
			return nil, uErr
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return patron, err
}

// LazyILSAuthenticator defers building the real authenticator until a
// method is first called
type LazyILSAuthenticator struct {
	lazy *di.Lazy[ILSAuthenticator]
}

// NewLazyILSAuthenticator wraps build, which runs at most once successfully
func NewLazyILSAuthenticator(build func() (ILSAuthenticator, error)) *LazyILSAuthenticator {
	return &LazyILSAuthenticator{lazy: di.NewLazy(build)}
}

// Initialized reports whether the real authenticator has been built
func (l *LazyILSAuthenticator) Initialized() bool {
	return l.lazy.Initialized()
}

// State returns the proxy state
func (l *LazyILSAuthenticator) State() di.LazyState {
	return l.lazy.State()
}

// NewCatalogLogin implements ILSAuthenticator
func (l *LazyILSAuthenticator) NewCatalogLogin(ctx context.Context, username, password string) (*ils.Patron, error) {
	target, err := l.lazy.Get()
	if err != nil {
		return nil, err
	}
	return target.NewCatalogLogin(ctx, username, password)
}

// StoredCatalogLogin implements ILSAuthenticator
func (l *LazyILSAuthenticator) StoredCatalogLogin(ctx context.Context) (*ils.Patron, error) {
	target, err := l.lazy.Get()
	if err != nil {
		return nil, err
	}
	return target.StoredCatalogLogin(ctx)
}

func patronUser(p *ils.Patron, username, password string) *User {
	return &User{
		Username:    p.CatUsername,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		CatUsername: username,
		CatPassword: password,
	}
}

func credentials(r *http.Request) (string, string, error) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		return "", "", fmt.Errorf("%w: username and password are required", ErrInvalidCredentials)
	}
	return username, password, nil
}

// ILS logs users in with their catalog credentials
type ILS struct {
	conn          ils.Connection
	authenticator ILSAuthenticator
}

// NewILS creates the ILS strategy
func NewILS(conn ils.Connection, authenticator ILSAuthenticator) *ILS {
	return &ILS{conn: conn, authenticator: authenticator}
}

// Authenticate implements Authenticator
func (a *ILS) Authenticate(ctx context.Context, r *http.Request) (*User, error) {
	username, password, err := credentials(r)
	if err != nil {
		return nil, err
	}
	patron, err := a.authenticator.NewCatalogLogin(ctx, username, password)
	if err != nil {
		return nil, err
	}
	user := patronUser(patron, username, password)
	user.AuthMethod = "ILS"
	return user, nil
}

// MultiILS logs users in against one of several catalogs chosen by the
// "target" form value
type MultiILS struct {
	conn          ils.Connection
	authenticator ILSAuthenticator
}

// NewMultiILS creates the MultiILS strategy
func NewMultiILS(conn ils.Connection, authenticator ILSAuthenticator) *MultiILS {
	return &MultiILS{conn: conn, authenticator: authenticator}
}

// Authenticate implements Authenticator
func (a *MultiILS) Authenticate(ctx context.Context, r *http.Request) (*User, error) {
	multi, ok := a.conn.(ils.MultiTargetConnection)
	if !ok || len(multi.LoginTargets()) == 0 {
		return nil, fmt.Errorf("%s driver: %w", a.conn.DriverName(), ils.ErrUnsupported)
	}

	username, password, err := credentials(r)
	if err != nil {
		return nil, err
	}
	target := r.FormValue("target")
	if target == "" {
		target = multi.DefaultLoginTarget()
	}
	if !slices.Contains(multi.LoginTargets(), target) {
		return nil, fmt.Errorf("%w: unknown login target %q", ErrInvalidCredentials, target)
	}

	qualified := target + "." + username
	patron, err := a.authenticator.NewCatalogLogin(ctx, qualified, password)
	if err != nil {
		return nil, err
	}
	user := patronUser(patron, qualified, password)
	user.AuthMethod = "MultiILS"
	return user, nil
}
