package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"iptv-viewer/internal/fingerprint"
	"iptv-viewer/internal/library"
	"iptv-viewer/internal/loader"
	"iptv-viewer/internal/logging"
	"iptv-viewer/internal/m3u"
)

// maxPlaylistBytes bounds ad-hoc playlist uploads. Provider playlists
// with six-figure channel counts still fit comfortably.
const maxPlaylistBytes = 256 << 20

// PlaylistRequest registers a playlist in the library.
type PlaylistRequest struct {
	Name string `json:"name"`
	// Path is resolved inside the configured playlist directory.
	Path string `json:"path"`
}

// PlaylistInfo is one library entry plus its staleness flag.
type PlaylistInfo struct {
	library.Entry
	NeedsRefresh bool `json:"needsRefresh"`
}

// LoadResult reports a completed playlist load.
type LoadResult struct {
	Fingerprint string `json:"fingerprint"`
	ParsedAt    string `json:"parsedAt"`
	Channels    int    `json:"channels"`
	Categories  int    `json:"categories"`
	Diagnostics int    `json:"diagnostics"`
	FromCache   bool   `json:"fromCache"`
	Activated   bool   `json:"activated"`
}

// GetPlaylists lists the registered playlists, newest first.
func (h *Handlers) GetPlaylists(w http.ResponseWriter, _ *http.Request) {
	entries := h.library.All()

	out := make([]PlaylistInfo, 0, len(entries))
	for _, e := range entries {
		stale, err := h.library.NeedsRefresh(e.ID)
		if err != nil {
			stale = true
		}
		out = append(out, PlaylistInfo{Entry: e, NeedsRefresh: stale})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, out)
}

// AddPlaylist registers a playlist file in the library.
func (h *Handlers) AddPlaylist(w http.ResponseWriter, r *http.Request) {
	var req PlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		writeJSONError(w, "Name is required", http.StatusBadRequest)
		return
	}
	path, err := h.resolvePlaylistPath(req.Path)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.library.Add(req.Name, path)
	if err != nil {
		logging.Error("Failed to register playlist %q: %v", req.Name, err)
		writeJSONError(w, "Failed to register playlist", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, entry)
}

// GetPlaylist returns a single library entry.
func (h *Handlers) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	entry, err := h.library.Get(mux.Vars(r)["id"])
	if errors.Is(err, library.ErrNotFound) {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, "Failed to read playlist", http.StatusInternalServerError)
		return
	}

	stale, err := h.library.NeedsRefresh(entry.ID)
	if err != nil {
		stale = true
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, PlaylistInfo{Entry: entry, NeedsRefresh: stale})
}

// RemovePlaylist deletes a playlist from the library. The playlist file
// itself is left alone.
func (h *Handlers) RemovePlaylist(w http.ResponseWriter, r *http.Request) {
	err := h.library.Remove(mux.Vars(r)["id"])
	if errors.Is(err, library.ErrNotFound) {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("Failed to remove playlist: %v", err)
		writeJSONError(w, "Failed to remove playlist", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, "ok")
}

// LoadPlaylist reads a registered playlist from disk, builds its
// snapshot, and activates it.
func (h *Handlers) LoadPlaylist(w http.ResponseWriter, r *http.Request) {
	entry, err := h.library.Get(mux.Vars(r)["id"])
	if errors.Is(err, library.ErrNotFound) {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, "Failed to read playlist", http.StatusInternalServerError)
		return
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		logging.Warn("Failed to read playlist file %s: %v", entry.Path, err)
		writeJSONError(w, "Failed to read playlist file", http.StatusBadGateway)
		return
	}

	res, err := h.loader.Load(r.Context(), loader.Source{
		Name:        entry.Name,
		Fingerprint: fingerprint.Sum(data),
		Data:        data,
	})
	if err != nil {
		h.writeLoadError(w, err)
		return
	}

	if err := h.library.MarkOpened(entry.ID, len(res.Snapshot.Records)); err != nil {
		logging.Warn("Failed to record playlist open: %v", err)
	}

	h.writeLoadResult(w, res)
}

// LoadInline parses a playlist uploaded in the request body and
// activates it without registering it in the library.
func (h *Handlers) LoadInline(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxPlaylistBytes+1))
	if err != nil {
		writeJSONError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(data) > maxPlaylistBytes {
		writeJSONError(w, "Playlist too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		writeJSONError(w, "Empty request body", http.StatusBadRequest)
		return
	}

	res, err := h.loader.Load(r.Context(), loader.Source{Name: "inline", Data: data})
	if err != nil {
		h.writeLoadError(w, err)
		return
	}

	h.writeLoadResult(w, res)
}

func (h *Handlers) writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, m3u.ErrNotText) {
		writeJSONError(w, "Playlist is not decodable as text", http.StatusUnprocessableEntity)
		return
	}
	logging.Error("Playlist load failed: %v", err)
	writeJSONError(w, "Failed to load playlist", http.StatusInternalServerError)
}

func (h *Handlers) writeLoadResult(w http.ResponseWriter, res *loader.Result) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, LoadResult{
		Fingerprint: res.Snapshot.Fingerprint,
		ParsedAt:    res.Snapshot.ParsedAt.Format(time.RFC3339),
		Channels:    len(res.Snapshot.Records),
		Categories:  len(res.Snapshot.Categories),
		Diagnostics: len(res.Snapshot.Diagnostics),
		FromCache:   res.FromCache,
		Activated:   res.Activated,
	})
}

// resolvePlaylistPath confines registered playlist files to the
// configured playlist directory.
func (h *Handlers) resolvePlaylistPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("path is required")
	}
	if filepath.IsAbs(path) {
		return "", errors.New("path must be relative to the playlist directory")
	}

	resolved := filepath.Join(h.playlistDir, filepath.Clean(path))
	rel, err := filepath.Rel(h.playlistDir, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("path escapes the playlist directory")
	}
	return resolved, nil
}
