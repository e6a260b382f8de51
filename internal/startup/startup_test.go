package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion == "" {
		t.Error("Expected GoVersion to be set")
	}
	if info.OS == "" {
		t.Error("Expected OS to be set")
	}
	if info.Arch == "" {
		t.Error("Expected Arch to be set")
	}

	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
		setEnv       bool
	}{
		{
			name:         "Returns default when env var not set",
			key:          "TEST_UNSET_VAR",
			defaultValue: "default",
			want:         "default",
		},
		{
			name:         "Returns env value when set",
			key:          "TEST_SET_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
			setEnv:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			}
			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
		setEnv       bool
	}{
		{"Unset returns default true", "", true, true, false},
		{"Unset returns default false", "", false, false, false},
		{"True value", "true", false, true, true},
		{"False value", "false", true, false, true},
		{"Numeric true", "1", false, true, true},
		{"Invalid returns default", "banana", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv("TEST_BOOL_VAR", tt.envValue)
			}
			if got := getEnvBool("TEST_BOOL_VAR", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		want         int
		setEnv       bool
	}{
		{"Unset returns default", "", 8, 8, false},
		{"Valid value", "16", 8, 16, true},
		{"Invalid returns default", "many", 8, 8, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv("TEST_INT_VAR", tt.envValue)
			}
			if got := getEnvInt("TEST_INT_VAR", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/channels", "api/channels"},
		{"/api/playlists/{id}", "api/playlists"},
		{"/healthz", "healthz"},
		{"/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := getRouteGroup(tt.path); got != tt.want {
				t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/channels", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodGet, http.MethodPost)

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes failed: %v", err)
	}

	// One entry per method.
	if len(routes) != 3 {
		t.Errorf("Expected 3 route entries, got %d", len(routes))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dataDir := t.TempDir()
	playlistDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("PLAYLIST_DIR", playlistDir)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != "8080" {
		t.Errorf("Port = %s, want 8080", config.Port)
	}
	if config.MetricsPort != "9090" {
		t.Errorf("MetricsPort = %s, want 9090", config.MetricsPort)
	}
	if !config.MetricsEnabled {
		t.Error("Expected metrics enabled by default")
	}
	if config.CacheMaxSnapshots != 8 {
		t.Errorf("CacheMaxSnapshots = %d, want 8", config.CacheMaxSnapshots)
	}
	if config.CachePath != filepath.Join(dataDir, "snapshots.db") {
		t.Errorf("CachePath = %s", config.CachePath)
	}
	if config.LibraryPath != filepath.Join(dataDir, "playlists.json") {
		t.Errorf("LibraryPath = %s", config.LibraryPath)
	}
}

func TestLoadConfigUnwritableDataDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("write access checks do not apply to root")
	}

	dataDir := filepath.Join(t.TempDir(), "readonly")
	if err := os.MkdirAll(dataDir, 0o555); err != nil {
		t.Fatalf("Failed to create read-only dir: %v", err)
	}
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("PLAYLIST_DIR", t.TempDir())

	if _, err := LoadConfig(); err == nil {
		t.Fatal("Expected error for unwritable data directory")
	}
}

func TestEnsureDirectoryCreates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir")

	if err := ensureDirectory(path, "test"); err != nil {
		t.Fatalf("ensureDirectory failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Errorf("Expected directory to exist: %v", err)
	}
}

func TestEnsureDirectoryRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if err := ensureDirectory(path, "test"); err == nil {
		t.Fatal("Expected error for path that is a file")
	}
}
