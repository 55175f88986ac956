package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BatchConfig controls one batch run of the CLI entry point.
type BatchConfig struct {
	ModelDir    string
	SwapperPath string
	HistoryPath string

	// SwapModelMirrors overrides the built-in mirror list when non-empty.
	SwapModelMirrors []string
}

type batchConfigFile struct {
	Models struct {
		Dir     string   `yaml:"dir"`
		Mirrors []string `yaml:"mirrors"`
	} `yaml:"models"`
	Swapper struct {
		Path string `yaml:"path"`
	} `yaml:"swapper"`
	History struct {
		Path string `yaml:"path"`
	} `yaml:"history"`
}

// DefaultBatchConfig returns the baseline batch configuration.
func DefaultBatchConfig() BatchConfig {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return BatchConfig{
		ModelDir:    ModelsDir(homeDir),
		SwapperPath: "inswapper",
		HistoryPath: filepath.Join(AppDir(homeDir), "history.db"),
	}
}

// LoadBatchConfig reads a YAML config file and overlays it on defaults.
// A missing file is not an error; a malformed file is.
func LoadBatchConfig(path string) (BatchConfig, error) {
	cfg := DefaultBatchConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return BatchConfig{}, fmt.Errorf("read config file: %w", err)
	}

	var f batchConfigFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return BatchConfig{}, fmt.Errorf("parse config file: %w", err)
	}

	if f.Models.Dir != "" {
		cfg.ModelDir = f.Models.Dir
	}
	if len(f.Models.Mirrors) > 0 {
		cfg.SwapModelMirrors = f.Models.Mirrors
	}
	if f.Swapper.Path != "" {
		cfg.SwapperPath = f.Swapper.Path
	}
	if f.History.Path != "" {
		cfg.HistoryPath = f.History.Path
	}

	return cfg, nil
}
