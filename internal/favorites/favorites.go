// Package favorites keeps the user's favorite channels. Favorites are
// keyed by stream URI so they survive snapshot swaps, playlist reloads,
// and id renumbering; the set is a small JSON file rewritten atomically
// on every mutation.
package favorites

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"iptv-viewer/internal/channel"
	"iptv-viewer/internal/logging"
)

// ErrNotFound reports a lookup of a stream URI that is not a favorite.
var ErrNotFound = errors.New("favorites: channel not favorited")

// Entry is one favorited channel. It carries enough of the source
// record to stay meaningful when the channel is absent from the active
// snapshot.
type Entry struct {
	Name      string    `json:"name"`
	StreamURI string    `json:"streamUri"`
	GroupName string    `json:"groupName"`
	TvgID     string    `json:"tvgId,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

// Set is the persisted favorites collection. All methods are safe for
// concurrent use.
type Set struct {
	mu      sync.RWMutex
	path    string
	entries map[string]*Entry
}

// setFile is the persisted form.
type setFile struct {
	Version int      `json:"version"`
	Entries []*Entry `json:"favorites"`
}

const setVersion = 1

// Open loads the favorites set at path, creating an empty one if the
// file does not exist yet.
func Open(path string) (*Set, error) {
	s := &Set{path: path, entries: make(map[string]*Entry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Info("Starting with an empty favorites set at %s", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read favorites: %w", err)
	}

	var file setFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode favorites: %w", err)
	}
	for _, e := range file.Entries {
		s.entries[e.StreamURI] = e
	}

	logging.Info("Loaded favorites: %d channels", len(s.entries))
	return s, nil
}

// Add favorites a channel record. Adding an already-favorited stream
// URI is a no-op that returns the existing entry with added=false.
func (s *Set) Add(rec channel.Record) (Entry, bool, error) {
	if rec.StreamURI == "" {
		return Entry{}, false, errors.New("favorites: record has no stream URI")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[rec.StreamURI]; ok {
		return *existing, false, nil
	}

	entry := &Entry{
		Name:      rec.DisplayName,
		StreamURI: rec.StreamURI,
		GroupName: rec.GroupName,
		TvgID:     rec.Attr("tvg-id"),
		AddedAt:   time.Now().UTC(),
	}
	s.entries[entry.StreamURI] = entry
	if err := s.save(); err != nil {
		delete(s.entries, entry.StreamURI)
		return Entry{}, false, err
	}

	logging.Info("Favorited channel %q", entry.Name)
	return *entry, true, nil
}

// Remove unfavorites a stream URI.
func (s *Set) Remove(streamURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[streamURI]
	if !ok {
		return ErrNotFound
	}

	delete(s.entries, streamURI)
	if err := s.save(); err != nil {
		s.entries[streamURI] = entry
		return err
	}

	logging.Info("Unfavorited channel %q", entry.Name)
	return nil
}

// Contains reports whether a stream URI is favorited.
func (s *Set) Contains(streamURI string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[streamURI]
	return ok
}

// All returns copies of every entry, most recently added first.
func (s *Set) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].AddedAt.Equal(out[b].AddedAt) {
			return out[a].AddedAt.After(out[b].AddedAt)
		}
		return out[a].StreamURI < out[b].StreamURI
	})
	return out
}

// Len returns the number of favorited channels.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// save writes the set atomically. Callers hold s.mu.
func (s *Set) save() error {
	entries := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].StreamURI < entries[b].StreamURI })

	data, err := json.MarshalIndent(setFile{Version: setVersion, Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write favorites: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logging.Warn("Failed to clean up %s: %v", tmp, rmErr)
		}
		return fmt.Errorf("failed to replace favorites: %w", err)
	}
	return nil
}
