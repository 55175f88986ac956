package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"faceswap/internal/domain"
)

const defaultMirrorTimeout = 45 * time.Minute

// Artifact is a model file confirmed present at its canonical path.
type Artifact struct {
	Path string
	Size int64
}

// UnavailableError reports that no mirror produced a usable artifact.
// It carries the expected local path and manual-download guidance.
type UnavailableError struct {
	FileName     string
	ExpectedPath string
	Mirrors      []string
	Attempts     []string
}

// Error formats the failure with remediation instructions.
func (e *UnavailableError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "model %s is unavailable: every mirror failed", e.FileName)
	for _, attempt := range e.Attempts {
		fmt.Fprintf(&b, "\n  %s", attempt)
	}
	fmt.Fprintf(&b, "\ndownload it manually from one of:")
	for _, mirror := range e.Mirrors {
		fmt.Fprintf(&b, "\n  %s", mirror)
	}
	fmt.Fprintf(&b, "\nand place it at: %s", e.ExpectedPath)
	return b.String()
}

// httpDoer abstracts the HTTP client for mirror download tests.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Acquirer ensures model artifacts are present in a local directory,
// downloading them from ordered mirror lists on first use.
type Acquirer struct {
	dir           string
	client        httpDoer
	mirrorTimeout time.Duration
}

// NewAcquirer creates an acquirer rooted at the given model directory.
func NewAcquirer(dir string) *Acquirer {
	return &Acquirer{
		dir:           dir,
		client:        http.DefaultClient,
		mirrorTimeout: defaultMirrorTimeout,
	}
}

// NewAcquirerForTests creates an acquirer with an injectable client and timeout.
func NewAcquirerForTests(dir string, client httpDoer, mirrorTimeout time.Duration) *Acquirer {
	return &Acquirer{
		dir:           dir,
		client:        client,
		mirrorTimeout: mirrorTimeout,
	}
}

// Dir returns the canonical model directory.
func (a *Acquirer) Dir() string {
	return a.dir
}

// LocalPath returns the canonical path for a catalog option.
func (a *Acquirer) LocalPath(opt domain.SwapModelOption) string {
	return filepath.Join(a.dir, opt.FileName)
}

// Ensure returns the artifact for opt, downloading it when absent.
// A present file is returned immediately with no network access. Otherwise
// mirrors are tried in order and the first full download wins; a failed or
// truncated transfer never leaves a partial file at the canonical path.
func (a *Acquirer) Ensure(ctx context.Context, opt domain.SwapModelOption) (Artifact, error) {
	target := a.LocalPath(opt)

	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return Artifact{Path: target, Size: info.Size()}, nil
	}

	attempts := make([]string, 0, len(opt.Mirrors))
	for _, mirror := range opt.Mirrors {
		if err := a.download(ctx, mirror, target); err != nil {
			attempts = append(attempts, fmt.Sprintf("%s: %v", mirror, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		info, err := os.Stat(target)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("%s: stat downloaded file: %v", mirror, err))
			continue
		}
		return Artifact{Path: target, Size: info.Size()}, nil
	}

	return Artifact{}, &UnavailableError{
		FileName:     opt.FileName,
		ExpectedPath: target,
		Mirrors:      opt.Mirrors,
		Attempts:     attempts,
	}
}

// EnsureSwapModel ensures the swap model, honoring mirror overrides.
func (a *Acquirer) EnsureSwapModel(ctx context.Context, mirrorOverride []string) (Artifact, error) {
	opt, ok := CatalogOption(SwapModelID)
	if !ok {
		return Artifact{}, fmt.Errorf("swap model missing from catalog")
	}
	if len(mirrorOverride) > 0 {
		opt.Mirrors = mirrorOverride
	}
	return a.Ensure(ctx, opt)
}

// EnsureDetectorData ensures every detector data file and returns their
// directory, which is the acquirer's model directory.
func (a *Acquirer) EnsureDetectorData(ctx context.Context) (string, error) {
	for _, opt := range Catalog() {
		if opt.ID == SwapModelID {
			continue
		}
		if _, err := a.Ensure(ctx, opt); err != nil {
			return "", err
		}
	}
	return a.dir, nil
}

// download fetches one URL to target with a bounded per-mirror timeout.
// The transfer goes to a temporary sibling file and is renamed into place
// only after a complete copy, so interrupted downloads leave nothing behind.
func (a *Acquirer) download(ctx context.Context, sourceURL, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare destination directory: %w", err)
	}

	tmpPath := target + ".download"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.mirrorTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "faceswap")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write destination file: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close destination file: %w", closeErr)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("truncated transfer: got %d of %d bytes", written, resp.ContentLength)
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("remove old destination file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move downloaded file into place: %w", err)
	}

	return nil
}

// MarkDownloaded annotates catalog options found in the given directories.
func MarkDownloaded(models []domain.SwapModelOption, modelDirs []string) {
	for i := range models {
		for _, dir := range modelDirs {
			candidate := filepath.Join(dir, models[i].FileName)
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			models[i].Downloaded = true
			models[i].LocalPath = candidate
			break
		}
	}
}
