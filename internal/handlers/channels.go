package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"iptv-viewer/internal/channel"
)

const defaultWindow = 100

// ChannelWindow is the windowed channel listing envelope. Total counts
// everything the filter selects; Channels holds only the requested
// window.
type ChannelWindow struct {
	Total       int              `json:"total"`
	Offset      int              `json:"offset"`
	Count       int              `json:"count"`
	Category    string           `json:"category,omitempty"`
	Search      string           `json:"search,omitempty"`
	Sort        string           `json:"sort"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	ParsedAt    string           `json:"parsedAt,omitempty"`
	Channels    []channel.Record `json:"channels"`
}

// GetChannels serves a window over the active snapshot. Filters, sort
// order, and the window come from query parameters; the configured view
// persists so a follow-up request without filters keeps them.
func (h *Handlers) GetChannels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := channel.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	if v := q.Get("favorites"); v != "" {
		fav, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, "Invalid favorites flag", http.StatusBadRequest)
			return
		}
		filter.FavoritesOnly = fav
	}
	sortOrder := channel.ParseSortOrder(q.Get("sort"))

	offset := 0
	if v := q.Get("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeJSONError(w, "Invalid offset", http.StatusBadRequest)
			return
		}
		offset = parsed
	}

	count := defaultWindow
	if v := q.Get("count"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeJSONError(w, "Invalid count", http.StatusBadRequest)
			return
		}
		count = parsed
	}

	total := h.view.Configure(filter, sortOrder)
	records := h.view.Slice(offset, count)
	h.view.SetVisibleRange(offset, len(records))

	response := ChannelWindow{
		Total:    total,
		Offset:   offset,
		Count:    len(records),
		Category: filter.Category,
		Search:   filter.Search,
		Sort:     string(sortOrder),
		Channels: records,
	}
	if response.Channels == nil {
		response.Channels = []channel.Record{}
	}
	if snap := h.view.Snapshot(); snap != nil {
		response.Fingerprint = snap.Fingerprint
		response.ParsedAt = snap.ParsedAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// GetChannel returns a single channel by id from the active snapshot.
func (h *Handlers) GetChannel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "Invalid channel id", http.StatusBadRequest)
		return
	}

	rec, ok := h.view.Record(id)
	if !ok {
		writeJSONError(w, "Channel not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, rec)
}

// CategoryInfo is one category in the listing: its name and size, in
// playlist first-seen order.
type CategoryInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// GetCategories lists the active snapshot's categories.
func (h *Handlers) GetCategories(w http.ResponseWriter, _ *http.Request) {
	categories := h.view.Categories()

	out := make([]CategoryInfo, 0, len(categories))
	for _, cat := range categories {
		out = append(out, CategoryInfo{Name: cat.Name, Count: len(cat.RecordIDs)})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, out)
}

// GetDiagnostics lists the parse diagnostics of the active snapshot.
func (h *Handlers) GetDiagnostics(w http.ResponseWriter, _ *http.Request) {
	diagnostics := []channel.Diagnostic{}
	if snap := h.view.Snapshot(); snap != nil && snap.Diagnostics != nil {
		diagnostics = snap.Diagnostics
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, diagnostics)
}

// GetViewState reports the configured filter, sort order, and visible
// range.
func (h *Handlers) GetViewState(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.view.State())
}
