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
	"fmt"
	"net/http"
	"net/url"

	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/session"
)

// ShibbolethNamespace is the session namespace holding the Shibboleth session id
const ShibbolethNamespace = "Shibboleth"

// Shibboleth trusts the identity headers set by a Shibboleth service provider
type Shibboleth struct {
	sessions *session.Manager
	config   config.ShibbolethConfig
}

// NewShibboleth creates the Shibboleth strategy
func NewShibboleth(sessions *session.Manager, cfg config.ShibbolethConfig) *Shibboleth {
	if cfg.UsernameHeader == "" {
		cfg.UsernameHeader = "Remote-User"
	}
	if cfg.SessionIDHeader == "" {
		cfg.SessionIDHeader = "Shib-Session-Id"
	}
	return &Shibboleth{sessions: sessions, config: cfg}
}

// Authenticate implements Authenticator
func (s *Shibboleth) Authenticate(ctx context.Context, r *http.Request) (*User, error) {
	username := r.Header.Get(s.config.UsernameHeader)
	if username == "" {
		return nil, fmt.Errorf("%w: missing %s header", ErrInvalidCredentials, s.config.UsernameHeader)
	}

	user := &User{Username: username, AuthMethod: "Shibboleth"}
	for field, header := range s.config.Attributes {
		value := r.Header.Get(header)
		switch field {
		case "firstname":
			user.FirstName = value
		case "lastname":
			user.LastName = value
		case "email":
			user.Email = value
		case "cat_username":
			user.CatUsername = value
		}
	}

	if shibSession := r.Header.Get(s.config.SessionIDHeader); shibSession != "" {
		if err := s.sessions.Container(ShibbolethNamespace).Set(ctx, "session_id", shibSession); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// SessionInitiator implements SessionInitiator
func (s *Shibboleth) SessionInitiator(_ context.Context, target string) (string, error) {
	if s.config.LoginURL == "" {
		return "", fmt.Errorf("shibboleth login URL not configured")
	}
	u, err := url.Parse(s.config.LoginURL)
	if err != nil {
		return "", fmt.Errorf("invalid shibboleth login URL: %w", err)
	}
	q := u.Query()
	q.Set("target", target)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
