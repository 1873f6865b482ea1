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

	"github.com/ahoma/shelfline/pkg/session"
)

// ChoiceAuthNamespace is the session namespace holding the chosen strategy
const ChoiceAuthNamespace = "ChoiceAuth"

// ChoiceAuth lets the user pick one of several strategies. The choice is
// read from the "auth_method" form value and remembered in the session.
type ChoiceAuth struct {
	session *session.Container
	plugins *PluginManager
	options []string
}

// NewChoiceAuth creates the ChoiceAuth strategy
func NewChoiceAuth(container *session.Container, plugins *PluginManager, options []string) *ChoiceAuth {
	return &ChoiceAuth{session: container, plugins: plugins, options: options}
}

// Options returns the selectable strategies
func (c *ChoiceAuth) Options() []string {
	return slices.Clone(c.options)
}

// SelectedMethod returns the strategy remembered in the session, if any
func (c *ChoiceAuth) SelectedMethod(ctx context.Context) (string, error) {
	var method string
	if _, err := c.session.Get(ctx, "method", &method); err != nil {
		return "", err
	}
	return method, nil
}

// Authenticate implements Authenticator
func (c *ChoiceAuth) Authenticate(ctx context.Context, r *http.Request) (*User, error) {
	method := r.FormValue("auth_method")
	if method == "" {
		stored, err := c.SelectedMethod(ctx)
		if err != nil {
			return nil, err
		}
		method = stored
	}
	if method == "" || method == "ChoiceAuth" || !slices.Contains(c.options, method) {
		return nil, fmt.Errorf("%w: %q", ErrMethodNotAllowed, method)
	}

	strategy, err := c.plugins.Get(method)
	if err != nil {
		return nil, err
	}
	user, err := strategy.Authenticate(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := c.session.Set(ctx, "method", method); err != nil {
		return nil, err
	}
	return user, nil
}

// SessionInitiator implements SessionInitiator using the first option that
// logs in through an external site
func (c *ChoiceAuth) SessionInitiator(ctx context.Context, target string) (string, error) {
	for _, method := range c.options {
		strategy, err := c.plugins.Get(method)
		if err != nil {
			return "", err
		}
		if initiator, ok := strategy.(SessionInitiator); ok {
			return initiator.SessionInitiator(ctx, target)
		}
	}
	return "", nil
}

// MultiAuth tries several strategies in order and accepts the first success
type MultiAuth struct {
	plugins *PluginManager
	order   []string
}

// NewMultiAuth creates the MultiAuth strategy
func NewMultiAuth(plugins *PluginManager, order []string) *MultiAuth {
	return &MultiAuth{plugins: plugins, order: order}
}

// Order returns the strategies in the order they are tried
func (m *MultiAuth) Order() []string {
	return slices.Clone(m.order)
}

// Authenticate implements Authenticator. It returns the last failure when
// every strategy fails.
func (m *MultiAuth) Authenticate(ctx context.Context, r *http.Request) (*User, error) {
	if len(m.order) == 0 {
		return nil, fmt.Errorf("%w: no strategies configured for MultiAuth", ErrMethodNotAllowed)
	}

	var lastErr error
	for _, method := range m.order {
		if method == "MultiAuth" {
			continue
		}
		strategy, err := m.plugins.Get(method)
		if err != nil {
			return nil, err
		}
		user, err := strategy.Authenticate(ctx, r)
		if err == nil {
			return user, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no usable strategy")
	}
	return nil, lastErr
}
