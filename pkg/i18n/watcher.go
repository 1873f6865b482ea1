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
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/ahoma/shelfline/pkg/logging"
)

// Watcher resets a translator when a language file changes
type Watcher struct {
	dirs       []string
	translator *Translator
	logger     *logging.Logger
	watcher    *fsnotify.Watcher
}

// NewWatcher creates a watcher over the given language directories
func NewWatcher(translator *Translator, logger *logging.Logger, dirs ...string) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		dirs:       dirs,
		translator: translator,
		logger:     logger.WithName("language-watcher"),
	}
}

// Start watches until ctx is done. Missing directories are skipped.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	watched := 0
	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			w.logger.V(1).Info("Skipping language directory", "dir", dir, "error", err.Error())
			continue
		}
		watched++
	}

	w.logger.Info("Started language watcher", "directories", watched)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 &&
				strings.HasSuffix(filepath.Base(event.Name), ".ini") {
				w.logger.Info("Language file changed, reloading", "file", event.Name)
				w.translator.Reset()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err, "Language watcher error")

		case <-ctx.Done():
			return watcher.Close()
		}
	}
}
