package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
	if cfg.Snapshot.Codec != "none" {
		t.Errorf("expected default snapshot codec none, got %s", cfg.Snapshot.Codec)
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "distxn.yaml")
	contents := "logging:\n  level: debug\nsnapshot:\n  codec: zstd\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected overridden log level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected format to keep its default text, got %s", cfg.Logging.Format)
	}
	if cfg.Snapshot.Codec != "zstd" {
		t.Errorf("expected overridden snapshot codec zstd, got %s", cfg.Snapshot.Codec)
	}
}

func TestLoadFromEnvOverridesLogging(t *testing.T) {
	os.Setenv("DISTXN_LOG_LEVEL", "WARN")
	os.Setenv("DISTXN_LOG_FORMAT", "JSON")
	defer os.Unsetenv("DISTXN_LOG_LEVEL")
	defer os.Unsetenv("DISTXN_LOG_FORMAT")

	cfg := Default()
	cfg.LoadFromEnv()

	if cfg.Logging.Level != "warn" {
		t.Errorf("expected env override lowercased to warn, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected env override lowercased to json, got %s", cfg.Logging.Format)
	}
}
