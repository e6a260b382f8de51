package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"iptv-viewer/internal/favorites"
	"iptv-viewer/internal/logging"
	"iptv-viewer/internal/metrics"
)

// FavoriteRequest favorites a channel from the active snapshot by id.
type FavoriteRequest struct {
	ID int64 `json:"id"`
}

// UnfavoriteRequest removes a favorite by its persistent key.
type UnfavoriteRequest struct {
	StreamURI string `json:"streamUri"`
}

// GetFavorites lists the favorited channels, newest first.
func (h *Handlers) GetFavorites(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.favorites.All())
}

// AddFavorite favorites a channel from the active snapshot. Favoriting
// an already-favorited channel returns the existing entry.
func (h *Handlers) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == 0 {
		writeJSONError(w, "Channel id is required", http.StatusBadRequest)
		return
	}

	rec, ok := h.view.Record(req.ID)
	if !ok {
		writeJSONError(w, "Channel not found", http.StatusNotFound)
		return
	}

	entry, added, err := h.favorites.Add(rec)
	if err != nil {
		logging.Error("Failed to favorite channel %q: %v", rec.DisplayName, err)
		writeJSONError(w, "Failed to favorite channel", http.StatusInternalServerError)
		return
	}
	metrics.FavoritesTotal.Set(float64(h.favorites.Len()))

	w.Header().Set("Content-Type", "application/json")
	if added {
		w.WriteHeader(http.StatusCreated)
	}
	writeJSON(w, entry)
}

// RemoveFavorite unfavorites a channel by stream URI.
func (h *Handlers) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	var req UnfavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.StreamURI == "" {
		writeJSONError(w, "Stream URI is required", http.StatusBadRequest)
		return
	}

	err := h.favorites.Remove(req.StreamURI)
	if errors.Is(err, favorites.ErrNotFound) {
		writeJSONError(w, "Favorite not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("Failed to unfavorite channel: %v", err)
		writeJSONError(w, "Failed to unfavorite channel", http.StatusInternalServerError)
		return
	}
	metrics.FavoritesTotal.Set(float64(h.favorites.Len()))

	writeJSONStatus(w, "ok")
}

// CheckFavorite reports whether a stream URI is favorited.
func (h *Handlers) CheckFavorite(w http.ResponseWriter, r *http.Request) {
	streamURI := r.URL.Query().Get("streamUri")
	if streamURI == "" {
		writeJSONError(w, "Stream URI is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]bool{"isFavorite": h.favorites.Contains(streamURI)})
}
