package config

import (
	"os"
	"path/filepath"

	"faceswap/internal/domain"
)

// AppDir returns the per-user application directory.
func AppDir(homeDir string) string {
	return filepath.Join(homeDir, ".faceswap")
}

// ModelsDir returns the canonical model artifact directory.
func ModelsDir(homeDir string) string {
	return filepath.Join(AppDir(homeDir), "models")
}

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		ModelDir:    ModelsDir(homeDir),
		SwapperPath: "inswapper",
		OutputDir:   filepath.Join(homeDir, "Pictures", "FaceSwap"),
	}
}
