package face

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// swapSpec is the per-invocation JSON contract with the swapper tool.
type swapSpec struct {
	TargetRect      [4]int       `json:"targetRect"`
	TargetLandmarks [][2]int     `json:"targetLandmarks"`
	SourceEmbedding [128]float32 `json:"sourceEmbedding"`
}

// execSwapper drives the external inswapper CLI, one call per target face.
type execSwapper struct {
	toolPath  string
	modelPath string
	runner    commandRunner
}

// newExecSwapper builds a swapper around the external tool and swap model.
func newExecSwapper(toolPath, modelPath string) *execSwapper {
	return &execSwapper{
		toolPath:  toolPath,
		modelPath: modelPath,
		runner:    &execRunner{},
	}
}

// newExecSwapperForTests builds a swapper with an injectable runner.
func newExecSwapperForTests(toolPath, modelPath string, runner commandRunner) *execSwapper {
	return &execSwapper{
		toolPath:  toolPath,
		modelPath: modelPath,
		runner:    runner,
	}
}

// Swap composites the source identity into one target face region.
func (s *execSwapper) Swap(ctx context.Context, inputPath string, target Face, source Descriptor, outputPath string) error {
	specPath, cleanup, err := writeSwapSpec(target, source)
	if err != nil {
		return err
	}
	defer cleanup()

	args := buildSwapperArgs(s.modelPath, inputPath, outputPath, specPath)
	result, runErr := s.runner.Run(ctx, s.toolPath, args...)
	if runErr != nil {
		detail := strings.TrimSpace(result.Stderr)
		if len(detail) > 500 {
			detail = detail[:500] + "..."
		}
		if detail == "" {
			return fmt.Errorf("%s failed (exit %d): %w", s.toolPath, result.ExitCode, runErr)
		}
		return fmt.Errorf("%s failed (exit %d): %w (%s)", s.toolPath, result.ExitCode, runErr, detail)
	}

	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("%s completed but output image is missing: %w", s.toolPath, err)
	}
	return nil
}

// writeSwapSpec serializes one face-swap request to a temporary JSON file.
func writeSwapSpec(target Face, source Descriptor) (string, func(), error) {
	landmarks := make([][2]int, 0, len(target.Landmarks))
	for _, p := range target.Landmarks {
		landmarks = append(landmarks, [2]int{p.X, p.Y})
	}

	spec := swapSpec{
		TargetRect: [4]int{
			target.Rect.Min.X,
			target.Rect.Min.Y,
			target.Rect.Max.X,
			target.Rect.Max.Y,
		},
		TargetLandmarks: landmarks,
		SourceEmbedding: source,
	}

	data, err := json.Marshal(spec)
	if err != nil {
		return "", nil, fmt.Errorf("encode swap spec: %w", err)
	}

	file, err := os.CreateTemp("", "faceswap-spec-*.json")
	if err != nil {
		return "", nil, fmt.Errorf("create swap spec file: %w", err)
	}

	path := file.Name()
	_, writeErr := file.Write(data)
	closeErr := file.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if writeErr != nil {
			return "", nil, fmt.Errorf("write swap spec file: %w", writeErr)
		}
		return "", nil, fmt.Errorf("close swap spec file: %w", closeErr)
	}

	return path, func() { _ = os.Remove(path) }, nil
}

// buildSwapperArgs builds the inswapper CLI invocation for one face.
func buildSwapperArgs(modelPath, inputPath, outputPath, specPath string) []string {
	return []string{
		"-m", modelPath,
		"-i", inputPath,
		"-o", outputPath,
		"-f", specPath,
	}
}
