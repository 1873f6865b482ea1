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
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/di"
	"github.com/ahoma/shelfline/pkg/session"
)

const (
	defaultGraphURL  = "https://graph.facebook.com"
	facebookDialog   = "https://www.facebook.com/dialog/oauth"
	facebookStateKey = "state"
)

// JSONFetcher fetches and parses a JSON document
type JSONFetcher interface {
	GetJSON(ctx context.Context, rawURL string) (gjson.Result, error)
}

// Facebook logs users in through the Facebook OAuth dialog
type Facebook struct {
	session *session.Container
	client  JSONFetcher
	config  config.FacebookConfig
}

// NewFacebook creates the Facebook strategy
func NewFacebook(container *session.Container, client JSONFetcher, cfg config.FacebookConfig) *Facebook {
	if cfg.GraphURL == "" {
		cfg.GraphURL = defaultGraphURL
	}
	return &Facebook{session: container, client: client, config: cfg}
}

func (f *Facebook) validateConfig() error {
	if f.config.AppID == "" {
		return di.NewConfigurationError("Facebook", "facebook.appId", "Facebook app id missing from configuration.")
	}
	if f.config.Secret == "" {
		return di.NewConfigurationError("Facebook", "facebook.secret", "Facebook secret missing from configuration.")
	}
	return nil
}

// SessionInitiator implements SessionInitiator. It stores a fresh state
// value in the session and returns the dialog URL.
func (f *Facebook) SessionInitiator(ctx context.Context, target string) (string, error) {
	if err := f.validateConfig(); err != nil {
		return "", err
	}

	state := uuid.NewString()
	if err := f.session.Set(ctx, facebookStateKey, state); err != nil {
		return "", err
	}

	redirect := f.config.RedirectURL
	if redirect == "" {
		redirect = target
	}
	v := url.Values{}
	v.Set("client_id", f.config.AppID)
	v.Set("redirect_uri", redirect)
	v.Set("state", state)
	v.Set("scope", "public_profile,email")
	return facebookDialog + "?" + v.Encode(), nil
}

// Authenticate implements Authenticator. The request is the OAuth callback
// carrying "code" and "state".
func (f *Facebook) Authenticate(ctx context.Context, r *http.Request) (*User, error) {
	if err := f.validateConfig(); err != nil {
		return nil, err
	}

	code := r.FormValue("code")
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrInvalidCredentials)
	}

	var expected string
	found, err := f.session.Get(ctx, facebookStateKey, &expected)
	if err != nil {
		return nil, err
	}
	if !found || expected != r.FormValue("state") {
		return nil, fmt.Errorf("%w: state mismatch", ErrInvalidCredentials)
	}
	if err := f.session.Delete(ctx, facebookStateKey); err != nil {
		return nil, err
	}

	graph := strings.TrimRight(f.config.GraphURL, "/")
	tokenQuery := url.Values{}
	tokenQuery.Set("client_id", f.config.AppID)
	tokenQuery.Set("client_secret", f.config.Secret)
	tokenQuery.Set("redirect_uri", f.config.RedirectURL)
	tokenQuery.Set("code", code)

	token, err := f.client.GetJSON(ctx, graph+"/oauth/access_token?"+tokenQuery.Encode())
	if err != nil {
		return nil, fmt.Errorf("facebook token exchange failed: %w", err)
	}
	accessToken := token.Get("access_token").String()
	if accessToken == "" {
		return nil, fmt.Errorf("%w: no access token", ErrInvalidCredentials)
	}

	meQuery := url.Values{}
	meQuery.Set("access_token", accessToken)
	meQuery.Set("fields", "id,first_name,last_name,email")
	me, err := f.client.GetJSON(ctx, graph+"/me?"+meQuery.Encode())
	if err != nil {
		return nil, fmt.Errorf("facebook profile lookup failed: %w", err)
	}
	id := me.Get("id").String()
	if id == "" {
		return nil, fmt.Errorf("%w: profile without id", ErrInvalidCredentials)
	}

	return &User{
		Username:   id,
		FirstName:  me.Get("first_name").String(),
		LastName:   me.Get("last_name").String(),
		Email:      me.Get("email").String(),
		AuthMethod: "Facebook",
	}, nil
}
