// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package profile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces bursts of writes from editors.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a profile file into a Store when it changes. A reload
// that fails to parse keeps the last good profile.
type Watcher struct {
	path     string
	store    *Store
	debounce time.Duration
	log      zerolog.Logger

	// reloaded is signalled after every reload attempt (tests only).
	reloaded chan error
}

// NewWatcher creates a watcher for path feeding store.
func NewWatcher(path string, store *Store, log zerolog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		store:    store,
		debounce: DefaultDebounce,
		log:      log,
	}
}

// Run watches until ctx is done. The parent directory is watched rather
// than the file so that rename-and-replace saves are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create profile watcher: %w", err)
	}
	defer fw.Close()

	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("failed to resolve profile path: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("PROFILE_WATCH_ERROR")
		}
	}
}

func (w *Watcher) reload() {
	p, err := Load(w.path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("PROFILE_RELOAD_FAILED")
	} else {
		w.store.Set(p)
		w.log.Info().Str("path", w.path).Str("name", p.Name).Msg("PROFILE_RELOADED")
	}
	if w.reloaded != nil {
		w.reloaded <- err
	}
}
