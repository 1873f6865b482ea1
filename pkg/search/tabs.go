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

package search

import (
	"maps"
	"slices"
	"strings"

	"github.com/ahoma/shelfline/pkg/config"
)

// TabsHelper answers questions about the configured search tabs. A tab id is
// a backend identifier, optionally followed by ":<name>" for a filtered tab.
type TabsHelper struct {
	tabs        []config.SearchTabConfig
	filters     map[string][]string
	permissions map[string]string
}

// NewTabsHelper creates a tabs helper. Nil maps are treated as empty.
func NewTabsHelper(tabs []config.SearchTabConfig, filters map[string][]string, permissions map[string]string) *TabsHelper {
	if tabs == nil {
		tabs = []config.SearchTabConfig{}
	}
	if filters == nil {
		filters = map[string][]string{}
	}
	if permissions == nil {
		permissions = map[string]string{}
	}
	return &TabsHelper{tabs: tabs, filters: filters, permissions: permissions}
}

// TabConfig returns the tabs in display order
func (h *TabsHelper) TabConfig() []config.SearchTabConfig {
	return slices.Clone(h.tabs)
}

// FilterConfig returns the hidden filters per tab id
func (h *TabsHelper) FilterConfig() map[string][]string {
	return maps.Clone(h.filters)
}

// PermissionConfig returns the permission required per tab id
func (h *TabsHelper) PermissionConfig() map[string]string {
	return maps.Clone(h.permissions)
}

// ExtractClassName returns the backend part of a tab id
func ExtractClassName(tabID string) string {
	class, _, _ := strings.Cut(tabID, ":")
	return class
}

// HiddenFilters returns the filters of the first tab for backend
func (h *TabsHelper) HiddenFilters(backend string) []string {
	for _, tab := range h.tabs {
		if ExtractClassName(tab.ID) == backend {
			return slices.Clone(h.filters[tab.ID])
		}
	}
	return nil
}

// VisibleTabs returns the tabs whose permission, if any, is granted
func (h *TabsHelper) VisibleTabs(isGranted func(permission string) bool) []config.SearchTabConfig {
	var visible []config.SearchTabConfig
	for _, tab := range h.tabs {
		perm, ok := h.permissions[tab.ID]
		if ok && perm != "" && (isGranted == nil || !isGranted(perm)) {
			continue
		}
		visible = append(visible, tab)
	}
	return visible
}

// ActiveTab returns the tab id for backend whose filters equal the given
// hidden filters, or "" when none matches
func (h *TabsHelper) ActiveTab(backend string, hidden []string) string {
	for _, tab := range h.tabs {
		if ExtractClassName(tab.ID) != backend {
			continue
		}
		if filtersMatch(h.filters[tab.ID], hidden) {
			return tab.ID
		}
	}
	return ""
}

func filtersMatch(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
