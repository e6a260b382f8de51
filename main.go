package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iptv-viewer/internal/cache"
	"iptv-viewer/internal/favorites"
	"iptv-viewer/internal/handlers"
	"iptv-viewer/internal/library"
	"iptv-viewer/internal/loader"
	"iptv-viewer/internal/logging"
	"iptv-viewer/internal/metrics"
	"iptv-viewer/internal/middleware"
	"iptv-viewer/internal/startup"
	"iptv-viewer/internal/view"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize snapshot cache
	cacheStart := time.Now()
	store, err := cache.Open(context.Background(), config.CachePath, config.CacheMaxSnapshots)
	if err != nil {
		startup.LogFatal("Failed to initialize snapshot cache: %v", err)
	}
	defer store.Close()
	startup.LogCacheInit(time.Since(cacheStart))

	// Initialize playlist library
	lib, err := library.Open(config.LibraryPath)
	if err != nil {
		startup.LogFatal("Failed to open playlist library: %v", err)
	}
	startup.LogLibraryInit(len(lib.All()))

	// Initialize favorites
	favs, err := favorites.Open(config.FavoritesPath)
	if err != nil {
		startup.LogFatal("Failed to open favorites: %v", err)
	}
	startup.LogFavoritesInit(favs.Len())
	metrics.FavoritesTotal.Set(float64(favs.Len()))

	// Initialize the windowed view and the loader that feeds it
	v := view.New()
	v.SetFavorites(favs.Contains)
	l := loader.New(store, v)

	// Initialize handlers
	h := handlers.New(v, l, lib, favs, config)

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply metrics middleware
	metrics.InitializeMetrics()
	meteredHandler := middleware.Metrics(middleware.DefaultMetricsConfig())(router)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(meteredHandler)

	// Apply compression middleware
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start metrics server on its own port
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(h, config.MetricsPort)
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, store)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Channel routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/channels", h.GetChannels).Methods("GET")
	api.HandleFunc("/channels/{id}", h.GetChannel).Methods("GET")
	api.HandleFunc("/categories", h.GetCategories).Methods("GET")
	api.HandleFunc("/diagnostics", h.GetDiagnostics).Methods("GET")
	api.HandleFunc("/view", h.GetViewState).Methods("GET")

	// Favorites routes
	api.HandleFunc("/favorites", h.GetFavorites).Methods("GET")
	api.HandleFunc("/favorites", h.AddFavorite).Methods("POST")
	api.HandleFunc("/favorites", h.RemoveFavorite).Methods("DELETE")
	api.HandleFunc("/favorites/check", h.CheckFavorite).Methods("GET")

	// Playlist library routes
	api.HandleFunc("/playlists", h.GetPlaylists).Methods("GET")
	api.HandleFunc("/playlists", h.AddPlaylist).Methods("POST")
	api.HandleFunc("/playlists/{id}", h.GetPlaylist).Methods("GET")
	api.HandleFunc("/playlists/{id}", h.RemovePlaylist).Methods("DELETE")
	api.HandleFunc("/playlists/{id}/load", h.LoadPlaylist).Methods("POST")

	// Ad-hoc playlist upload
	api.HandleFunc("/load", h.LoadInline).Methods("POST")

	return r
}

func startMetricsServer(h *handlers.Handlers, port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", h.MetricsHandler())
	metricsMux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("Metrics server error: %v", err)
		}
	}()

	return srv
}

func handleShutdown(srv, metricsSrv *http.Server, store *cache.Store) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Closing snapshot cache")
	if err := store.Close(); err != nil {
		logging.Warn("Snapshot cache close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Snapshot cache closed")
	}

	startup.LogShutdownComplete()
}
