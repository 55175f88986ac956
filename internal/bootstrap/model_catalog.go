package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"faceswap/internal/artifact"
	"faceswap/internal/config"
	"faceswap/internal/domain"
)

// GetSwapModels returns built-in model presets for one-click downloads.
func (a *App) GetSwapModels() []domain.SwapModelOption {
	models := artifact.Catalog()
	artifact.MarkDownloaded(models, a.knownModelDirs())
	return models
}

// DownloadSwapModel downloads one catalog model into the configured model
// directory and returns the refreshed catalog.
func (a *App) DownloadSwapModel(modelID string) ([]domain.SwapModelOption, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return nil, fmt.Errorf("model id is required")
	}

	opt, found := artifact.CatalogOption(id)
	if !found {
		return nil, fmt.Errorf("unknown model id: %s", id)
	}

	settings, err := a.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	acquirer := artifact.NewAcquirer(settings.ModelDir)
	if _, err := acquirer.Ensure(context.Background(), opt); err != nil {
		return nil, fmt.Errorf("download model %s: %w", opt.Name, err)
	}

	a.refreshDiagnosticsFromSettings(settings)
	return a.GetSwapModels(), nil
}

// knownModelDirs lists directories that may hold downloaded artifacts.
func (a *App) knownModelDirs() []string {
	dirs := []string{config.DefaultSettings().ModelDir}

	settings, err := a.Store.Load()
	if err != nil {
		return dirs
	}
	settings = normalizeSettings(settings)

	if settings.ModelDir != "" && settings.ModelDir != dirs[0] {
		dirs = append(dirs, settings.ModelDir)
	}
	return dirs
}

// refreshDiagnosticsFromSettings reruns checks and caches the report.
func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}
