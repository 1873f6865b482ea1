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

// Package tags parses user-entered tag strings.
package tags

import (
	"regexp"
	"strings"
)

// DefaultMaxLength is used when no maximum tag length is configured
const DefaultMaxLength = 64

var tokenPattern = regexp.MustCompile(`"[^"]*"|[^ ]+`)

// Tags parses tag input. Tags are separated by spaces; a double-quoted
// phrase is one tag.
type Tags struct {
	maxLength int
}

// New creates a parser truncating tags to maxLength runes. A
// non-positive maxLength selects DefaultMaxLength.
func New(maxLength int) *Tags {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Tags{maxLength: maxLength}
}

// MaxLength returns the maximum tag length in runes
func (t *Tags) MaxLength() int {
	return t.maxLength
}

// Parse splits input into unique tags, in first-seen order
func (t *Tags) Parse(input string) []string {
	seen := make(map[string]bool)
	result := []string{}

	for _, token := range tokenPattern.FindAllString(input, -1) {
		tag := strings.TrimSpace(strings.Trim(token, `"`))
		if runes := []rune(tag); len(runes) > t.maxLength {
			tag = string(runes[:t.maxLength])
		}
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}
