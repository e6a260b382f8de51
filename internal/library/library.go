// Package library keeps the registry of known playlists: where each one
// lives, when it was last opened, and how many channels it produced.
// The registry is a small JSON file, rewritten atomically on every
// mutation.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"iptv-viewer/internal/logging"
)

// ErrNotFound reports a lookup of an unknown playlist id.
var ErrNotFound = errors.New("library: playlist not found")

// Entry is one registered playlist.
type Entry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	AddedAt      time.Time `json:"added_at"`
	LastOpened   time.Time `json:"last_opened,omitempty"`
	ChannelCount int       `json:"channel_count,omitempty"`
	// SourceModTime is the playlist file's mod time at last open, used
	// to flag stale entries without re-reading the file body.
	SourceModTime time.Time `json:"source_mod_time,omitempty"`
}

// Library is the playlist registry. All methods are safe for concurrent
// use.
type Library struct {
	mu      sync.RWMutex
	path    string
	entries map[string]*Entry
}

// registryFile is the persisted form, versioned like any other on-disk
// format we own.
type registryFile struct {
	Version int      `json:"version"`
	Entries []*Entry `json:"playlists"`
}

const registryVersion = 1

// Open loads the registry at path, creating an empty one if the file
// does not exist yet.
func Open(path string) (*Library, error) {
	lib := &Library{path: path, entries: make(map[string]*Entry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Info("Starting with an empty playlist library at %s", path)
		return lib, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist library: %w", err)
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode playlist library: %w", err)
	}
	for _, e := range file.Entries {
		lib.entries[e.ID] = e
	}

	logging.Info("Loaded playlist library: %d playlists", len(lib.entries))
	return lib, nil
}

// Add registers a playlist and persists the registry. The entry id is
// generated here.
func (l *Library) Add(name, path string) (Entry, error) {
	entry := &Entry{
		ID:      uuid.NewString(),
		Name:    name,
		Path:    path,
		AddedAt: time.Now().UTC(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[entry.ID] = entry
	if err := l.save(); err != nil {
		delete(l.entries, entry.ID)
		return Entry{}, err
	}

	logging.Info("Registered playlist %q (%s)", name, entry.ID)
	return *entry, nil
}

// Remove deletes a playlist from the registry.
func (l *Library) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		return ErrNotFound
	}

	delete(l.entries, id)
	if err := l.save(); err != nil {
		l.entries[id] = entry
		return err
	}

	logging.Info("Removed playlist %q (%s)", entry.Name, id)
	return nil
}

// Get returns a copy of one entry.
func (l *Library) Get(id string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return *entry, nil
}

// All returns copies of every entry, most recently added first.
func (l *Library) All() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].AddedAt.Equal(out[b].AddedAt) {
			return out[a].AddedAt.After(out[b].AddedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// MarkOpened records a successful open: the open time, the channel
// count it produced, and the source file's current mod time.
func (l *Library) MarkOpened(id string, channelCount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		return ErrNotFound
	}

	entry.LastOpened = time.Now().UTC()
	entry.ChannelCount = channelCount
	if info, err := os.Stat(entry.Path); err == nil {
		entry.SourceModTime = info.ModTime().UTC()
	}

	return l.save()
}

// NeedsRefresh reports whether the playlist file changed on disk since
// it was last opened. Never-opened entries and unreadable files report
// true.
func (l *Library) NeedsRefresh(id string) (bool, error) {
	l.mu.RLock()
	entry, ok := l.entries[id]
	if !ok {
		l.mu.RUnlock()
		return false, ErrNotFound
	}
	path, lastMod, opened := entry.Path, entry.SourceModTime, !entry.LastOpened.IsZero()
	l.mu.RUnlock()

	if !opened {
		return true, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return true, nil
	}
	return info.ModTime().UTC().After(lastMod), nil
}

// save writes the registry atomically. Callers hold l.mu.
func (l *Library) save() error {
	entries := make([]*Entry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].ID < entries[b].ID })

	data, err := json.MarshalIndent(registryFile{Version: registryVersion, Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode playlist library: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write playlist library: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logging.Warn("Failed to clean up %s: %v", tmp, rmErr)
		}
		return fmt.Errorf("failed to replace playlist library: %w", err)
	}
	return nil
}

// Dir returns the directory the registry file lives in.
func (l *Library) Dir() string {
	return filepath.Dir(l.path)
}
