package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDefaultBatchConfig verifies baseline batch defaults.
func TestDefaultBatchConfig(t *testing.T) {
	cfg := DefaultBatchConfig()
	if cfg.ModelDir == "" {
		t.Fatal("expected non-empty model dir")
	}
	if cfg.SwapperPath != "inswapper" {
		t.Fatalf("swapper path = %q, want inswapper", cfg.SwapperPath)
	}
	if !strings.HasSuffix(cfg.HistoryPath, "history.db") {
		t.Fatalf("history path = %q", cfg.HistoryPath)
	}
	if len(cfg.SwapModelMirrors) != 0 {
		t.Fatalf("default mirrors = %v, want none", cfg.SwapModelMirrors)
	}
}

// TestLoadBatchConfigEmptyPathUsesDefaults checks the no-file case.
func TestLoadBatchConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadBatchConfig("")
	if err != nil {
		t.Fatalf("LoadBatchConfig() error = %v", err)
	}
	want := DefaultBatchConfig()
	if cfg.ModelDir != want.ModelDir || cfg.SwapperPath != want.SwapperPath || cfg.HistoryPath != want.HistoryPath {
		t.Fatalf("config = %+v, want %+v", cfg, want)
	}
}

// TestLoadBatchConfigMissingFileUsesDefaults checks tolerant missing file.
func TestLoadBatchConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadBatchConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadBatchConfig() error = %v", err)
	}
	if cfg.SwapperPath != "inswapper" {
		t.Fatalf("swapper path = %q, want inswapper", cfg.SwapperPath)
	}
}

// TestLoadBatchConfigOverlaysFileValues checks YAML overrides on defaults.
func TestLoadBatchConfigOverlaysFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	content := strings.Join([]string{
		"models:",
		"  dir: /data/models",
		"  mirrors:",
		"    - https://mirror-a.example/inswapper_128.onnx",
		"    - https://mirror-b.example/inswapper_128.onnx",
		"swapper:",
		"  path: /usr/local/bin/inswapper",
		"history:",
		"  path: /data/history.db",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadBatchConfig(path)
	if err != nil {
		t.Fatalf("LoadBatchConfig() error = %v", err)
	}
	if cfg.ModelDir != "/data/models" {
		t.Fatalf("model dir = %q", cfg.ModelDir)
	}
	if cfg.SwapperPath != "/usr/local/bin/inswapper" {
		t.Fatalf("swapper path = %q", cfg.SwapperPath)
	}
	if cfg.HistoryPath != "/data/history.db" {
		t.Fatalf("history path = %q", cfg.HistoryPath)
	}
	if len(cfg.SwapModelMirrors) != 2 {
		t.Fatalf("mirrors = %v", cfg.SwapModelMirrors)
	}
}

// TestLoadBatchConfigPartialFileKeepsDefaults checks per-field overlay.
func TestLoadBatchConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	if err := os.WriteFile(path, []byte("models:\n  dir: /data/models\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadBatchConfig(path)
	if err != nil {
		t.Fatalf("LoadBatchConfig() error = %v", err)
	}
	if cfg.ModelDir != "/data/models" {
		t.Fatalf("model dir = %q", cfg.ModelDir)
	}
	if cfg.SwapperPath != "inswapper" {
		t.Fatalf("swapper path = %q, want default", cfg.SwapperPath)
	}
}

// TestLoadBatchConfigMalformedFileFails checks parse error handling.
func TestLoadBatchConfigMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	if err := os.WriteFile(path, []byte("models: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadBatchConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}
