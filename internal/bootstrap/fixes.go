package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"faceswap/internal/artifact"
	"faceswap/internal/config"
	"faceswap/internal/domain"
)

// InstallOrFixDiagnostic applies a remediation for one failed diagnostic item.
// Model artifacts are downloaded through the acquirer; the swapper tool has
// no managed install and only returns guidance.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	settingsChanged := false
	var fixErr error

	switch id {
	case "swap_model":
		acquirer := artifact.NewAcquirer(settings.ModelDir)
		_, fixErr = acquirer.EnsureSwapModel(context.Background(), nil)
	case "detector_data":
		acquirer := artifact.NewAcquirer(settings.ModelDir)
		_, fixErr = acquirer.EnsureDetectorData(context.Background())
	case "output_dir":
		settings, settingsChanged, fixErr = fixOutputDir(settings)
	case "tool_swapper":
		fixErr = fmt.Errorf("the inswapper CLI has no managed install; install it and ensure %q is on PATH", settings.SwapperPath)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.refreshDiagnosticsFromSettings(settings)
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
	}

	report := a.refreshDiagnosticsFromSettings(settings)
	if fixErr != nil {
		return report, fixErr
	}
	return report, nil
}

// fixOutputDir applies the default output directory and creates it.
func fixOutputDir(settings domain.Settings) (domain.Settings, bool, error) {
	outputDir := strings.TrimSpace(settings.OutputDir)
	changed := false
	if outputDir == "" {
		outputDir = config.DefaultSettings().OutputDir
		settings.OutputDir = outputDir
		changed = true
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return settings, changed, fmt.Errorf("create output directory %s: %w", outputDir, err)
	}

	return settings, changed, nil
}
