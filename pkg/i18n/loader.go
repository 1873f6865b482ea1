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
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// parentDirective names the ini file a language file extends
const parentDirective = "@parent_ini"

// Loader loads the messages of one text domain in one locale
type Loader interface {
	Load(locale, domain string) (map[string]string, error)
}

// ExtendedIniLoader reads <dir>/<locale>.ini (or <dir>/<domain>/<locale>.ini)
// from each directory of a path stack. Later directories override earlier
// ones. A file may name a parent file with @parent_ini whose values it
// overrides.
type ExtendedIniLoader struct {
	paths []string
}

// NewExtendedIniLoader creates a loader over the given directories
func NewExtendedIniLoader(paths ...string) *ExtendedIniLoader {
	return &ExtendedIniLoader{paths: paths}
}

// Paths returns the directory stack
func (l *ExtendedIniLoader) Paths() []string {
	return l.paths
}

// Load implements Loader. A locale with no file in any directory yields an
// empty map.
func (l *ExtendedIniLoader) Load(locale, domain string) (map[string]string, error) {
	messages := make(map[string]string)
	for _, dir := range l.paths {
		if domain != "" && domain != DefaultDomain {
			dir = filepath.Join(dir, domain)
		}
		file := filepath.Join(dir, locale+".ini")
		if err := l.loadFile(file, messages, map[string]bool{}); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
	}
	return messages, nil
}

func (l *ExtendedIniLoader) loadFile(file string, into map[string]string, seen map[string]bool) error {
	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	if seen[abs] {
		return fmt.Errorf("%s: circular %s chain", file, parentDirective)
	}
	seen[abs] = true

	values, err := parseIni(file)
	if err != nil {
		return err
	}

	if parent, ok := values[parentDirective]; ok {
		delete(values, parentDirective)
		parentFile := parent
		if !filepath.IsAbs(parentFile) {
			parentFile = filepath.Join(filepath.Dir(file), parentFile)
		}
		if err := l.loadFile(parentFile, into, seen); err != nil {
			return fmt.Errorf("%s: loading parent: %w", file, err)
		}
	}

	for k, v := range values {
		into[k] = v
	}
	return nil
}

// parseIni reads key = value lines. Values may be double-quoted; lines
// starting with ';' or '#' and [section] headers are ignored.
func parseIni(file string) (map[string]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || text[0] == ';' || text[0] == '#' || text[0] == '[' {
			continue
		}

		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return nil, fmt.Errorf("%s:%d: missing '='", file, line)
		}
		key = unquote(strings.TrimSpace(key))
		values[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
	}
	return s
}
