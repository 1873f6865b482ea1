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

package tags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsMaxLength(t *testing.T) {
	assert.Equal(t, DefaultMaxLength, New(0).MaxLength())
	assert.Equal(t, 64, New(-1).MaxLength())
	assert.Equal(t, 10, New(10).MaxLength())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		maxLength int
		input     string
		want      []string
	}{
		{name: "empty", input: "", want: []string{}},
		{name: "words", input: "history  science", want: []string{"history", "science"}},
		{name: "quoted phrase", input: `"civil war" history`, want: []string{"civil war", "history"}},
		{name: "duplicates removed", input: `history "history" science history`, want: []string{"history", "science"}},
		{name: "empty quotes skipped", input: `"" art`, want: []string{"art"}},
		{name: "truncated", maxLength: 4, input: "biography", want: []string{"biog"}},
		{name: "truncation by rune", maxLength: 3, input: "élève", want: []string{"élè"}},
		{name: "truncation can create duplicates", maxLength: 3, input: "abcd abce", want: []string{"abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.maxLength).Parse(tt.input))
		})
	}
}

func TestParseDefaultLength(t *testing.T) {
	long := strings.Repeat("a", 100)
	got := New(0).Parse(long)
	assert.Len(t, got[0], DefaultMaxLength)
}
