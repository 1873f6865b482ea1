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

// Package ils connects to the integrated library system (the catalog and
// circulation backend).
package ils

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahoma/shelfline/pkg/config"
)

var (
	// ErrUnsupported is returned by drivers lacking a capability
	ErrUnsupported = errors.New("operation not supported by ILS driver")

	// ErrLoginFailed is returned for unknown patrons or wrong passwords
	ErrLoginFailed = errors.New("patron login failed")
)

// Patron is a catalog account
type Patron struct {
	ID          string `json:"id"`
	CatUsername string `json:"cat_username"`
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	Email       string `json:"email"`
}

// Connection is a configured ILS driver
type Connection interface {
	DriverName() string
	PatronLogin(ctx context.Context, username, password string) (*Patron, error)
}

// MultiTargetConnection is a connection spanning several catalogs. Usernames
// are qualified as "<target>.<username>".
type MultiTargetConnection interface {
	Connection
	LoginTargets() []string
	DefaultLoginTarget() string
}

// NewConnection creates the driver named in the catalog configuration
func NewConnection(cfg config.CatalogConfig) (Connection, error) {
	switch cfg.Driver {
	case "", "NoILS":
		return NoILS{}, nil
	case "Demo":
		return NewDemo(cfg), nil
	default:
		return nil, fmt.Errorf("unknown ILS driver %q", cfg.Driver)
	}
}

// NoILS is the driver used when no catalog is connected
type NoILS struct{}

// DriverName implements Connection
func (NoILS) DriverName() string { return "NoILS" }

// PatronLogin implements Connection
func (NoILS) PatronLogin(context.Context, string, string) (*Patron, error) {
	return nil, ErrUnsupported
}

// Demo authenticates against the patrons listed in configuration
type Demo struct {
	patrons       map[string]config.PatronConfig
	targets       []string
	defaultTarget string
}

// NewDemo creates a demo driver
func NewDemo(cfg config.CatalogConfig) *Demo {
	patrons := make(map[string]config.PatronConfig, len(cfg.Patrons))
	for _, p := range cfg.Patrons {
		patrons[p.Username] = p
	}
	return &Demo{
		patrons:       patrons,
		targets:       cfg.LoginTargets,
		defaultTarget: cfg.DefaultLoginTarget,
	}
}

// DriverName implements Connection
func (d *Demo) DriverName() string { return "Demo" }

// LoginTargets implements MultiTargetConnection
func (d *Demo) LoginTargets() []string { return d.targets }

// DefaultLoginTarget implements MultiTargetConnection
func (d *Demo) DefaultLoginTarget() string {
	if d.defaultTarget == "" && len(d.targets) > 0 {
		return d.targets[0]
	}
	return d.defaultTarget
}

// PatronLogin implements Connection
func (d *Demo) PatronLogin(_ context.Context, username, password string) (*Patron, error) {
	lookup := username
	if len(d.targets) > 0 {
		target, user, ok := strings.Cut(username, ".")
		if !ok || !d.hasTarget(target) {
			return nil, fmt.Errorf("%w: unknown login target in %q", ErrLoginFailed, username)
		}
		lookup = user
	}

	p, ok := d.patrons[lookup]
	if !ok || p.Password != password {
		return nil, ErrLoginFailed
	}
	return &Patron{
		ID:          p.ID,
		CatUsername: username,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
	}, nil
}

func (d *Demo) hasTarget(target string) bool {
	for _, t := range d.targets {
		if t == target {
			return true
		}
	}
	return false
}
