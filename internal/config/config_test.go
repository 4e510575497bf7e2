package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Storage.MaxImagesPerJob != 5 {
		t.Errorf("max images = %d", cfg.Storage.MaxImagesPerJob)
	}
	if cfg.Extraction.Model != "flash" {
		t.Errorf("model = %q", cfg.Extraction.Model)
	}
	if cfg.RateLimit.Enabled {
		t.Error("rate limiting must default off")
	}
	if !cfg.History.Enabled || cfg.History.Limit != 50 {
		t.Errorf("history = %+v", cfg.History)
	}
}

func TestLoadConfigCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footprintd.yaml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file not written: %v", err)
	}
}

func TestLoadConfigParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "footprintd.yaml")
	content := []byte(`
server:
  port: 9999
  body_limit: 50M
extraction:
  model: pro
  staged: true
rate_limit:
  enabled: true
  uploads_per_hour: 5
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Extraction.Model != "pro" || !cfg.Extraction.Staged {
		t.Errorf("extraction = %+v", cfg.Extraction)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.UploadsPerHour != 5 {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	// Unspecified fields keep defaults.
	if cfg.Storage.MaxImagesPerJob != 5 {
		t.Errorf("max images = %d, defaults must survive partial files", cfg.Storage.MaxImagesPerJob)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_MODEL", "flash-lite")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "footprintd.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Extraction.APIKey != "test-key" || cfg.Extraction.Model != "flash-lite" {
		t.Errorf("extraction = %+v", cfg.Extraction)
	}
}

func TestResolvePaths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "footprintd.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	if !filepath.IsAbs(cfg.GetDataDir()) {
		t.Errorf("data dir %q not resolved", cfg.GetDataDir())
	}
	if cfg.GetDataDir() != filepath.Join(dir, "data") {
		t.Errorf("data dir = %q", cfg.GetDataDir())
	}
}

func TestMaxUploadBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"10M", 10 << 20},
		{"512K", 512 << 10},
		{"2G", 2 << 30},
		{"100", 100},
		{"", 10 << 20},
		{"lots", 10 << 20},
		{"-5M", 10 << 20},
	}
	for _, tc := range tests {
		c := StorageConfig{MaxUploadSize: tc.in}
		if got := c.MaxUploadBytes(); got != tc.want {
			t.Errorf("MaxUploadBytes(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestGetServerAddr(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetServerAddr(); got != "0.0.0.0:8090" {
		t.Errorf("addr = %q", got)
	}
}
