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

// Package i18n translates interface strings from layered language files.
package i18n

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/ahoma/shelfline/pkg/cache"
	"github.com/ahoma/shelfline/pkg/logging"
)

// DefaultDomain is the text domain of keys without a "Domain::" prefix
const DefaultDomain = "default"

// FallbackLocales returns the fallback chain for a site language: just
// "en" for English, otherwise the language followed by "en".
func FallbackLocales(siteLanguage string) []string {
	if siteLanguage == "en" {
		return []string{"en"}
	}
	return []string{siteLanguage, "en"}
}

// NormalizeLocale canonicalizes a BCP 47 tag ("EN-gb" -> "en-GB")
func NormalizeLocale(locale string) (string, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return "", fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return tag.String(), nil
}

// Translator looks up messages in the current locale and then each fallback
// locale, returning the key itself when no locale has it.
type Translator struct {
	loader Loader
	logger *logging.Logger

	mu        sync.RWMutex
	locale    string
	fallbacks []string
	cache     cache.Cache
	loaded    map[string]map[string]string
}

// NewTranslator creates a translator for locale
func NewTranslator(locale string, loader Loader, logger *logging.Logger) *Translator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Translator{
		loader: loader,
		logger: logger.WithName("translator"),
		locale: locale,
		loaded: make(map[string]map[string]string),
	}
}

// Locale returns the current locale
func (t *Translator) Locale() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.locale
}

// SetLocale switches the current locale
func (t *Translator) SetLocale(locale string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locale = locale
}

// FallbackLocales returns the configured fallback chain
func (t *Translator) FallbackLocales() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.fallbacks...)
}

// SetFallbackLocales sets the locales consulted after the current one
func (t *Translator) SetFallbackLocales(locales ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fallbacks = locales
}

// SetCache attaches a persistent cache for loaded message tables
func (t *Translator) SetCache(c cache.Cache) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache = c
}

// Cached reports whether a persistent cache is attached
func (t *Translator) Cached() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cache != nil
}

// Translate returns the message for key. Keys of the form "Domain::key" are
// looked up in that text domain.
func (t *Translator) Translate(key string) string {
	domain, msgKey := DefaultDomain, key
	if d, k, ok := strings.Cut(key, "::"); ok && d != "" {
		domain, msgKey = d, k
	}

	t.mu.RLock()
	locales := make([]string, 0, len(t.fallbacks)+1)
	locales = append(locales, t.locale)
	locales = append(locales, t.fallbacks...)
	t.mu.RUnlock()

	seen := make(map[string]bool, len(locales))
	for _, locale := range locales {
		if seen[locale] {
			continue
		}
		seen[locale] = true
		if msg, ok := t.messages(locale, domain)[msgKey]; ok {
			return msg
		}
	}
	return msgKey
}

// Reset drops every loaded table, including cached ones
func (t *Translator) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cache != nil {
		for id := range t.loaded {
			if err := t.cache.Delete(id); err != nil {
				t.logger.Error(err, "Failed to clear translation cache", "table", id)
			}
		}
	}
	t.loaded = make(map[string]map[string]string)
}

func tableID(locale, domain string) string {
	return "translations-" + domain + "-" + locale
}

func (t *Translator) messages(locale, domain string) map[string]string {
	id := tableID(locale, domain)

	t.mu.RLock()
	table, ok := t.loaded[id]
	c := t.cache
	t.mu.RUnlock()
	if ok {
		return table
	}

	if c != nil {
		if raw, hit := c.Get(id); hit {
			if err := json.Unmarshal(raw, &table); err == nil {
				t.store(id, table)
				return table
			}
		}
	}

	table, err := t.loader.Load(locale, domain)
	if err != nil {
		t.logger.Error(err, "Failed to load language file", "locale", locale, "domain", domain)
		table = map[string]string{}
	}

	if c != nil && err == nil {
		if raw, mErr := json.Marshal(table); mErr == nil {
			if sErr := c.Set(id, raw); sErr != nil {
				t.logger.Debug("Failed to cache translations", "table", id, "error", sErr.Error())
			}
		}
	}

	t.store(id, table)
	return table
}

func (t *Translator) store(id string, table map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loaded[id] = table
}
