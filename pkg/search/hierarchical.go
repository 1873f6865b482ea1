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
	"strconv"
	"strings"
)

// HierarchicalFacet is a node of a hierarchical facet tree
type HierarchicalFacet struct {
	Value              string               `json:"value"`
	DisplayText        string               `json:"displayText"`
	Count              int                  `json:"count"`
	Level              int                  `json:"level"`
	IsApplied          bool                 `json:"isApplied"`
	HasAppliedChildren bool                 `json:"hasAppliedChildren"`
	Children           []*HierarchicalFacet `json:"children,omitempty"`
}

// HierarchicalFacetHelper builds trees from "<level>/<a>/<b>/" facet values
type HierarchicalFacetHelper struct {
	separator string
}

// NewHierarchicalFacetHelper creates a helper joining display levels with separator
func NewHierarchicalFacetHelper(separator string) *HierarchicalFacetHelper {
	if separator == "" {
		separator = "/"
	}
	return &HierarchicalFacetHelper{separator: separator}
}

// splitValue returns the level and path parts of a hierarchical value
func splitValue(value string) (int, []string, bool) {
	prefix, rest, ok := strings.Cut(value, "/")
	if !ok {
		return 0, nil, false
	}
	level, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, nil, false
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	return level, parts, true
}

// FormatDisplayText returns the last level of value, or every level joined
// by the separator when allLevels is set
func (h *HierarchicalFacetHelper) FormatDisplayText(value string, allLevels bool) string {
	_, parts, ok := splitValue(value)
	if !ok {
		return value
	}
	if allLevels {
		return strings.Join(parts, h.separator)
	}
	return parts[len(parts)-1]
}

// parentValue returns the value of the parent level, or "" at the top
func parentValue(level int, parts []string) string {
	if level == 0 || len(parts) < 2 {
		return ""
	}
	return strconv.Itoa(level-1) + "/" + strings.Join(parts[:len(parts)-1], "/") + "/"
}

// BuildTree arranges flat facet items into a tree. Items whose parent is not
// present become roots.
func (h *HierarchicalFacetHelper) BuildTree(items []FacetItem) []*HierarchicalFacet {
	nodes := make(map[string]*HierarchicalFacet, len(items))
	order := make([]string, 0, len(items))
	parents := make(map[string]string, len(items))

	for _, item := range items {
		level, parts, ok := splitValue(item.Value)
		if !ok {
			level, parts = 0, []string{item.Value}
		}
		nodes[item.Value] = &HierarchicalFacet{
			Value:       item.Value,
			DisplayText: parts[len(parts)-1],
			Count:       item.Count,
			Level:       level,
			IsApplied:   item.IsApplied,
		}
		parents[item.Value] = parentValue(level, parts)
		order = append(order, item.Value)
	}

	var roots []*HierarchicalFacet
	for _, value := range order {
		node := nodes[value]
		if parent, ok := nodes[parents[value]]; ok {
			parent.Children = append(parent.Children, node)
			continue
		}
		roots = append(roots, node)
	}

	for _, root := range roots {
		markApplied(root)
	}
	return roots
}

func markApplied(node *HierarchicalFacet) bool {
	for _, child := range node.Children {
		if markApplied(child) {
			node.HasAppliedChildren = true
		}
	}
	return node.IsApplied || node.HasAppliedChildren
}
