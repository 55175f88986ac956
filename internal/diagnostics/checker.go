package diagnostics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"faceswap/internal/artifact"
	"faceswap/internal/domain"
)

// Checker validates the external swapper tool and required model files.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all readiness checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkSwapperTool(settings.SwapperPath),
		c.checkSwapModel(settings.ModelDir),
		c.checkDetectorData(settings.ModelDir),
		c.checkOutputDir(settings.OutputDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkSwapperTool verifies the swapper executable is resolvable.
func (c *Checker) checkSwapperTool(swapperPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "tool_swapper",
		Name: "Swapper tool",
	}

	name := strings.TrimSpace(swapperPath)
	if name == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Swapper tool path is empty."
		item.Hint = "Set the inswapper executable name or full path in settings."
		return item
	}

	path, err := c.lookPath(name)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Swapper tool not found: %s", name)
		item.Hint = "Install the inswapper CLI and ensure it is available on PATH."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkSwapModel verifies the swap model artifact is present.
func (c *Checker) checkSwapModel(modelDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "swap_model",
		Name: "Swap model",
	}

	opt, ok := artifact.CatalogOption(artifact.SwapModelID)
	if !ok {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Swap model is missing from the built-in catalog."
		return item
	}

	if strings.TrimSpace(modelDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model directory is empty."
		item.Hint = "Set a model directory in settings."
		return item
	}

	path := filepath.Join(modelDir, opt.FileName)
	info, err := c.stat(path)
	if err != nil || info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Swap model not found: %s", path)
		item.Hint = "Download it from the model catalog or place it there manually."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Model file found: %s", path)
	return item
}

// checkDetectorData verifies every detector data file is present.
func (c *Checker) checkDetectorData(modelDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "detector_data",
		Name: "Detector data",
	}

	if strings.TrimSpace(modelDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model directory is empty."
		item.Hint = "Set a model directory in settings."
		return item
	}

	var missing []string
	for _, opt := range artifact.Catalog() {
		if opt.ID == artifact.SwapModelID {
			continue
		}
		info, err := c.stat(filepath.Join(modelDir, opt.FileName))
		if err != nil || info.IsDir() {
			missing = append(missing, opt.FileName)
		}
	}

	if len(missing) > 0 {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Missing detector files in %s: %s", modelDir, strings.Join(missing, ", "))
		item.Hint = "Download them from the model catalog."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Detector data is complete: %s", modelDir)
	return item
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set an output directory where result images can be written."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for result export."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}

// IsNotExist reports whether error represents file-not-found.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
