package handlers

import (
	"net/http"
	"runtime"
	"time"

	"iptv-viewer/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
)

var serverStart = time.Now()

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Active snapshot, empty until the first playlist load
	Fingerprint string `json:"fingerprint,omitempty"`
	ParsedAt    string `json:"parsedAt,omitempty"`
	Channels    int    `json:"channels"`
	Categories  int    `json:"categories"`
	Playlists   int    `json:"playlists"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(serverStart).Round(time.Second).String(),
		Playlists:    len(h.library.All()),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if snap := h.view.Snapshot(); snap != nil {
		response.Fingerprint = snap.Fingerprint
		response.ParsedAt = snap.ParsedAt.Format(time.RFC3339)
		response.Channels = len(snap.Records)
		response.Categories = len(snap.Categories)
	} else {
		// Serving but nothing loaded yet; still healthy, reads just
		// return empty windows.
		response.Status = statusStarting
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 once the server can answer reads.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]string{
		"status": "ready",
	})
}
