package batch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"faceswap/internal/artifact"
	"faceswap/internal/config"
	"faceswap/internal/domain"
	"faceswap/internal/face"
	"faceswap/internal/history"
	"faceswap/internal/swap"
	"faceswap/internal/tasklist"
)

// jobExecutor isolates the single-job executor behind an interface.
type jobExecutor interface {
	Run(ctx context.Context, job domain.JobDescriptor) domain.JobOutcome
}

// Recorder persists finished runs. A nil Recorder disables history.
type Recorder interface {
	RecordRun(ctx context.Context, run history.Run, outcomes []domain.JobOutcome) error
}

// Runner drives a task list through the single-job executor against one
// shared inference engine. Setup failures (model acquisition, engine
// construction, task list) are fatal and abort before any job runs;
// per-job failures are isolated and recorded.
type Runner struct {
	out      io.Writer
	recorder Recorder

	ensureModels func(ctx context.Context) (face.Config, error)
	newExecutor  func(cfg face.Config) (jobExecutor, func() error, error)
	loadTasks    func(path string) ([]domain.JobDescriptor, error)
	newRunID     func() string
	now          func() time.Time
}

// NewRunner wires the production acquirer, engine, and loader.
func NewRunner(cfg config.BatchConfig, recorder Recorder, out io.Writer) *Runner {
	acquirer := artifact.NewAcquirer(cfg.ModelDir)

	return &Runner{
		out:      out,
		recorder: recorder,
		ensureModels: func(ctx context.Context) (face.Config, error) {
			swapModel, err := acquirer.EnsureSwapModel(ctx, cfg.SwapModelMirrors)
			if err != nil {
				return face.Config{}, err
			}
			detectorDir, err := acquirer.EnsureDetectorData(ctx)
			if err != nil {
				return face.Config{}, err
			}
			return face.Config{
				DetectorDataDir: detectorDir,
				SwapModelPath:   swapModel.Path,
				SwapperPath:     cfg.SwapperPath,
			}, nil
		},
		newExecutor: func(fc face.Config) (jobExecutor, func() error, error) {
			engine, err := face.NewEngine(fc)
			if err != nil {
				return nil, nil, err
			}
			return swap.NewExecutor(engine), engine.Close, nil
		},
		loadTasks: tasklist.Load,
		newRunID:  uuid.NewString,
		now:       time.Now,
	}
}

// NewRunnerForTests builds a runner with injectable collaborators.
func NewRunnerForTests(
	out io.Writer,
	recorder Recorder,
	ensureModels func(ctx context.Context) (face.Config, error),
	newExecutor func(cfg face.Config) (jobExecutor, func() error, error),
	loadTasks func(path string) ([]domain.JobDescriptor, error),
) *Runner {
	return &Runner{
		out:          out,
		recorder:     recorder,
		ensureModels: ensureModels,
		newExecutor:  newExecutor,
		loadTasks:    loadTasks,
		newRunID:     uuid.NewString,
		now:          time.Now,
	}
}

// Run processes every job in the task list in order and returns the
// summary. The returned error is non-nil only for fatal setup failures,
// in which case no job was attempted.
func (r *Runner) Run(ctx context.Context, taskListPath string) (domain.BatchSummary, error) {
	started := r.now()

	fmt.Fprintln(r.out, "Checking for face swap model...")
	engineCfg, err := r.ensureModels(ctx)
	if err != nil {
		return domain.BatchSummary{}, err
	}

	// The task list is validated before the engine spins up so a bad
	// header never pays for provider initialization.
	jobs, err := r.loadTasks(taskListPath)
	if err != nil {
		return domain.BatchSummary{}, err
	}

	fmt.Fprintln(r.out, "Initializing face analysis and swap providers...")
	executor, closeEngine, err := r.newExecutor(engineCfg)
	if err != nil {
		return domain.BatchSummary{}, fmt.Errorf("initialize inference engine: %w", err)
	}
	defer func() {
		_ = closeEngine()
	}()

	fmt.Fprintf(r.out, "Processing task list: %s\n", taskListPath)

	// Outcome order must match job order; no job is skipped because an
	// earlier one failed.
	outcomes := make([]domain.JobOutcome, 0, len(jobs))
	for i, job := range jobs {
		fmt.Fprintf(r.out, "[%d/%d] %s + %s -> %s\n", i+1, len(jobs), job.FaceImage, job.TargetImage, job.Output)

		outcome := executor.Run(ctx, job)
		if outcome.Success {
			fmt.Fprintf(r.out, "  saved to: %s\n", outcome.OutputPath)
		} else {
			fmt.Fprintf(r.out, "  failed at %s: %s\n", outcome.Stage, outcome.Reason)
		}
		outcomes = append(outcomes, outcome)
	}

	summary := domain.Summarize(outcomes)

	if r.recorder != nil {
		run := history.Run{
			ID:         r.newRunID(),
			TaskList:   taskListPath,
			StartedAt:  started,
			FinishedAt: r.now(),
			Total:      summary.Total,
			Succeeded:  summary.Succeeded,
			Failed:     summary.Failed,
		}
		if err := r.recorder.RecordRun(ctx, run, summary.Outcomes); err != nil {
			fmt.Fprintf(r.out, "warning: record run history: %v\n", err)
		}
	}

	return summary, nil
}
