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

package i18n

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahoma/shelfline/pkg/cache"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFallbackLocales(t *testing.T) {
	assert.Equal(t, []string{"en"}, FallbackLocales("en"))
	assert.Equal(t, []string{"de", "en"}, FallbackLocales("de"))
}

func TestNormalizeLocale(t *testing.T) {
	got, err := NormalizeLocale("en-gb")
	require.NoError(t, err)
	assert.Equal(t, "en-GB", got)

	_, err = NormalizeLocale("not a locale!")
	assert.Error(t, err)
}

func TestExtendedIniLoaderLayersAndParents(t *testing.T) {
	app := filepath.Join(t.TempDir(), "app", "languages")
	local := filepath.Join(t.TempDir(), "local", "languages")

	writeFile(t, filepath.Join(app, "en.ini"), `; base file
Search = "Search"
Home = Home
`)
	writeFile(t, filepath.Join(app, "en-gb.ini"), `@parent_ini = "en.ini"
Home = "Home page"
`)
	writeFile(t, filepath.Join(local, "en-gb.ini"), `Search = "Find"`)
	writeFile(t, filepath.Join(app, "CreatorRoles", "en.ini"), `aut = "Author"`)

	loader := NewExtendedIniLoader(app, local)

	messages, err := loader.Load("en-gb", DefaultDomain)
	require.NoError(t, err)
	assert.Equal(t, "Find", messages["Search"])
	assert.Equal(t, "Home page", messages["Home"])

	roles, err := loader.Load("en", "CreatorRoles")
	require.NoError(t, err)
	assert.Equal(t, "Author", roles["aut"])

	missing, err := loader.Load("fr", DefaultDomain)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestExtendedIniLoaderRejectsParentCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ini"), `@parent_ini = "b.ini"`)
	writeFile(t, filepath.Join(dir, "b.ini"), `@parent_ini = "a.ini"`)

	_, err := NewExtendedIniLoader(dir).Load("a", DefaultDomain)
	assert.Error(t, err)
}

func TestTranslatorFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "en.ini"), "Search = Search\nHome = Home\n")
	writeFile(t, filepath.Join(dir, "de.ini"), "Search = Suche\n")
	writeFile(t, filepath.Join(dir, "CreatorRoles", "de.ini"), "aut = Verfasser\n")

	tr := NewTranslator("de", NewExtendedIniLoader(dir), nil)
	tr.SetFallbackLocales(FallbackLocales("de")...)

	assert.Equal(t, "Suche", tr.Translate("Search"))
	assert.Equal(t, "Home", tr.Translate("Home"))
	assert.Equal(t, "Verfasser", tr.Translate("CreatorRoles::aut"))
	assert.Equal(t, "Unknown", tr.Translate("Unknown"))
	assert.Equal(t, []string{"de", "en"}, tr.FallbackLocales())
}

func TestTranslatorUsesCache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "en.ini"), "Search = Find\n")

	c, err := cache.NewManager(t.TempDir(), time.Hour, nil).GetCache("language")
	require.NoError(t, err)

	tr := NewTranslator("en", NewExtendedIniLoader(dir), nil)
	tr.SetCache(c)
	assert.True(t, tr.Cached())
	assert.Equal(t, "Find", tr.Translate("Search"))

	_, hit := c.Get(tableID("en", DefaultDomain))
	assert.True(t, hit)

	// A second translator over the same cache never touches the files
	require.NoError(t, os.Remove(filepath.Join(dir, "en.ini")))
	other := NewTranslator("en", NewExtendedIniLoader(dir), nil)
	other.SetCache(c)
	assert.Equal(t, "Find", other.Translate("Search"))

	other.Reset()
	assert.Equal(t, "Search", other.Translate("Search"))
}

func TestWatcherResetsTranslator(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "en.ini"), "Search = Search\n")

	tr := NewTranslator("en", NewExtendedIniLoader(dir), nil)
	assert.Equal(t, "Search", tr.Translate("Search"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(tr, nil, dir, filepath.Join(dir, "missing"))
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "en.ini"), []byte("Search = Find\n"), 0o644)
		return tr.Translate("Search") == "Find"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
