package face

import (
	"fmt"
	"os"
	"os/exec"
)

// Config locates the resources the engine needs at construction time.
type Config struct {
	// DetectorDataDir holds the dlib detector/landmark/recognition files.
	DetectorDataDir string
	// SwapModelPath is the canonical path of the swap model artifact.
	SwapModelPath string
	// SwapperPath is the external swapper executable (name or path).
	SwapperPath string
}

// Engine is the shared inference context for a run: the face analyzer and
// the face swapper, constructed exactly once and reused by every job.
// Provider calls are not safe for concurrent use without external
// serialization; callers wanting parallelism must pool one engine per
// worker.
type Engine struct {
	analyzer Analyzer
	swapper  Swapper
	close    func() error
}

// NewEngine constructs both providers from the given configuration.
// Failure here is fatal to a run: no job can proceed without the engine,
// so the caller must abort before any job executes.
func NewEngine(cfg Config) (*Engine, error) {
	if info, err := os.Stat(cfg.SwapModelPath); err != nil || info.IsDir() {
		return nil, fmt.Errorf("swap model not found at %s", cfg.SwapModelPath)
	}

	toolPath, err := exec.LookPath(cfg.SwapperPath)
	if err != nil {
		return nil, fmt.Errorf("swapper tool %q not found on PATH: %w", cfg.SwapperPath, err)
	}

	analyzer, err := newGoFaceAnalyzer(cfg.DetectorDataDir)
	if err != nil {
		return nil, fmt.Errorf("initialize face analyzer: %w", err)
	}

	return &Engine{
		analyzer: analyzer,
		swapper:  newExecSwapper(toolPath, cfg.SwapModelPath),
		close: func() error {
			analyzer.Close()
			return nil
		},
	}, nil
}

// NewEngineForTests builds an engine around fake providers.
func NewEngineForTests(analyzer Analyzer, swapper Swapper) *Engine {
	return &Engine{
		analyzer: analyzer,
		swapper:  swapper,
		close:    func() error { return nil },
	}
}

// Analyzer returns the shared face-analysis provider.
func (e *Engine) Analyzer() Analyzer {
	return e.analyzer
}

// Swapper returns the shared face-swap provider.
func (e *Engine) Swapper() Swapper {
	return e.swapper
}

// Close releases provider resources at the end of a run.
func (e *Engine) Close() error {
	if e == nil || e.close == nil {
		return nil
	}
	return e.close()
}
