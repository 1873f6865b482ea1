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

package ils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahoma/shelfline/pkg/config"
)

var patrons = []config.PatronConfig{
	{Username: "jdoe", Password: "secret", ID: "P1", FirstName: "Jane", LastName: "Doe", Email: "jdoe@example.org"},
}

func TestNewConnection(t *testing.T) {
	conn, err := NewConnection(config.CatalogConfig{})
	require.NoError(t, err)
	assert.Equal(t, "NoILS", conn.DriverName())

	conn, err = NewConnection(config.CatalogConfig{Driver: "Demo"})
	require.NoError(t, err)
	assert.Equal(t, "Demo", conn.DriverName())

	_, err = NewConnection(config.CatalogConfig{Driver: "Sierra"})
	assert.Error(t, err)
}

func TestNoILSLogin(t *testing.T) {
	_, err := NoILS{}.PatronLogin(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDemoLogin(t *testing.T) {
	d := NewDemo(config.CatalogConfig{Patrons: patrons})

	p, err := d.PatronLogin(context.Background(), "jdoe", "secret")
	require.NoError(t, err)
	assert.Equal(t, "P1", p.ID)
	assert.Equal(t, "jdoe", p.CatUsername)

	_, err = d.PatronLogin(context.Background(), "jdoe", "wrong")
	assert.ErrorIs(t, err, ErrLoginFailed)
	_, err = d.PatronLogin(context.Background(), "nobody", "secret")
	assert.ErrorIs(t, err, ErrLoginFailed)
}

func TestDemoMultiTargetLogin(t *testing.T) {
	var conn Connection = NewDemo(config.CatalogConfig{
		Patrons:      patrons,
		LoginTargets: []string{"main", "branch"},
	})

	multi, ok := conn.(MultiTargetConnection)
	require.True(t, ok)
	assert.Equal(t, []string{"main", "branch"}, multi.LoginTargets())
	assert.Equal(t, "main", multi.DefaultLoginTarget())

	p, err := multi.PatronLogin(context.Background(), "branch.jdoe", "secret")
	require.NoError(t, err)
	assert.Equal(t, "branch.jdoe", p.CatUsername)

	_, err = multi.PatronLogin(context.Background(), "jdoe", "secret")
	assert.ErrorIs(t, err, ErrLoginFailed)
	_, err = multi.PatronLogin(context.Background(), "other.jdoe", "secret")
	assert.ErrorIs(t, err, ErrLoginFailed)
}
