// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

// Package sensors reads named sensor values from plain text files so panels
// can render them. Files contain one "key: value" pair per line; lines
// starting with # are comments. A store can be kept current with a file
// watcher so renders always see the latest values without re-reading disk.
package sensors

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/asterctl/asterctl/pkg/helpers/syncutil"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Store holds the latest value seen for each sensor key.
type Store struct {
	values map[string]string
	mu     syncutil.RWMutex
}

func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Keys returns all known sensor keys, unordered.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// LoadFile merges every pair in one sensor file into the store. Malformed
// lines are skipped with a warning rather than failing the whole file.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user config
	if err != nil {
		return fmt.Errorf("failed to read sensor file: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			log.Warn().Msgf("skipping malformed sensor line in %s: %s", path, line)
			continue
		}

		s.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan sensor file: %w", err)
	}
	return nil
}

// LoadPath slurps a sensor file, or every .txt file in a directory.
func (s *Store) LoadPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat sensor path: %w", err)
	}

	if !info.IsDir() {
		return s.LoadFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("failed to read sensor directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		if err := s.LoadFile(filepath.Join(path, entry.Name())); err != nil {
			log.Error().Err(err).Msgf("error loading sensor file: %s", entry.Name())
		}
	}
	return nil
}

// StartWatch loads path into the store and keeps it updated as sensor files
// change. The returned watcher must be closed by the caller to stop the
// background goroutine.
func StartWatch(store *Store, path string) (*fsnotify.Watcher, error) {
	if err := store.LoadPath(path); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watching the containing directory also catches atomic tmp+rename
	// writers that replace the file instead of updating it in place.
	watchPath := path
	singleFile := ""
	if info, statErr := os.Stat(path); statErr == nil && !info.IsDir() {
		watchPath = filepath.Dir(path)
		singleFile = filepath.Clean(path)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if singleFile != "" {
					if filepath.Clean(event.Name) != singleFile {
						continue
					}
				} else if !strings.HasSuffix(event.Name, ".txt") {
					continue
				}
				log.Debug().Msgf("sensor file changed: %s", event.Name)
				if err := store.LoadFile(event.Name); err != nil {
					log.Error().Err(err).Msgf("error reloading sensor file: %s", event.Name)
				}
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Msgf("error in sensor watcher: %s", watchErr)
			}
		}
	}()
	if err := watcher.Add(watchPath); err != nil {
		closeErr := watcher.Close()
		if closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing sensor watcher")
		}
		return nil, fmt.Errorf("failed to watch sensor path: %w", err)
	}

	log.Info().Msgf("watching sensor path: %s", watchPath)
	return watcher, nil
}
