package swap

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	"faceswap/internal/domain"
	"faceswap/internal/face"
)

const noFaceReason = "no face detected"

// Executor runs one swap job against the shared inference engine and is
// the failure isolation boundary: Run never returns an error, every
// failure mode becomes a tagged outcome.
type Executor struct {
	analyzer face.Analyzer
	swapper  face.Swapper

	// OnStage, when set, is invoked as each stage begins.
	OnStage func(stage domain.Stage)

	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	mkdirAll  func(path string, perm os.FileMode) error
}

// NewExecutor builds an executor over the shared engine's providers.
func NewExecutor(engine *face.Engine) *Executor {
	return newExecutor(engine.Analyzer(), engine.Swapper())
}

// NewExecutorForTests builds an executor around fake providers.
func NewExecutorForTests(analyzer face.Analyzer, swapper face.Swapper) *Executor {
	return newExecutor(analyzer, swapper)
}

func newExecutor(analyzer face.Analyzer, swapper face.Swapper) *Executor {
	return &Executor{
		analyzer:  analyzer,
		swapper:   swapper,
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		mkdirAll:  os.MkdirAll,
	}
}

// Run executes one job: load both images, detect faces in each, composite
// the first source face onto every target face in detection order, and
// persist the result to the job's output path.
func (e *Executor) Run(ctx context.Context, job domain.JobDescriptor) domain.JobOutcome {
	e.emitStage(domain.StageLoadSource)
	sourceJPEG, err := loadImageAsJPEG(job.FaceImage)
	if err != nil {
		return failure(job, domain.StageLoadSource, err)
	}

	e.emitStage(domain.StageLoadTarget)
	targetJPEG, err := loadImageAsJPEG(job.TargetImage)
	if err != nil {
		return failure(job, domain.StageLoadTarget, err)
	}

	e.emitStage(domain.StageDetectSource)
	sourceFaces, err := e.analyzer.Detect(ctx, sourceJPEG)
	if err != nil {
		return failure(job, domain.StageDetectSource, err)
	}
	if len(sourceFaces) == 0 {
		return failureReason(job, domain.StageDetectSource, noFaceReason)
	}

	e.emitStage(domain.StageDetectTarget)
	targetFaces, err := e.analyzer.Detect(ctx, targetJPEG)
	if err != nil {
		return failure(job, domain.StageDetectTarget, err)
	}
	if len(targetFaces) == 0 {
		return failureReason(job, domain.StageDetectTarget, noFaceReason)
	}

	e.emitStage(domain.StageSwap)
	tempDir, err := e.mkdirTemp("", "faceswap-job-*")
	if err != nil {
		return failure(job, domain.StageSwap, fmt.Errorf("create job workspace: %w", err))
	}
	defer func() {
		_ = e.removeAll(tempDir)
	}()

	current := filepath.Join(tempDir, "target.jpg")
	if err := os.WriteFile(current, targetJPEG, 0o644); err != nil {
		return failure(job, domain.StageSwap, fmt.Errorf("stage target image: %w", err))
	}

	// Multi-face source images are not disambiguated: the first face in
	// the analyzer's native ordering is the identity to transplant.
	source := sourceFaces[0].Descriptor

	// Each composite consumes the previous result, so all target faces
	// end up swapped in one image, each against the unmodified source.
	for i, target := range targetFaces {
		next := filepath.Join(tempDir, fmt.Sprintf("composite-%d.jpg", i))
		if err := e.swapper.Swap(ctx, current, target, source, next); err != nil {
			return failure(job, domain.StageSwap, err)
		}
		current = next
	}

	e.emitStage(domain.StagePersist)
	if err := e.persist(current, job.Output); err != nil {
		return failure(job, domain.StagePersist, err)
	}

	return domain.JobOutcome{
		Job:        job,
		Success:    true,
		OutputPath: job.Output,
	}
}

// emitStage forwards stage updates when a callback is configured.
func (e *Executor) emitStage(stage domain.Stage) {
	if e.OnStage != nil {
		e.OnStage(stage)
	}
}

// persist copies the final composite to the declared output path,
// creating missing parent directories first.
func (e *Executor) persist(resultPath, outputPath string) error {
	if strings.TrimSpace(outputPath) == "" {
		return fmt.Errorf("output path is empty")
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := e.mkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}

	src, err := os.Open(resultPath)
	if err != nil {
		return fmt.Errorf("open composite result: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file %s: %w", outputPath, err)
	}

	_, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if copyErr != nil {
		return fmt.Errorf("write output file %s: %w", outputPath, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close output file %s: %w", outputPath, closeErr)
	}
	return nil
}

// loadImageAsJPEG reads and decodes an image file, then re-encodes it as
// JPEG for the analyzer. Decode failures cover missing files, unsupported
// formats, and corrupt data alike.
func loadImageAsJPEG(path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("image path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode image %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

func failure(job domain.JobDescriptor, stage domain.Stage, err error) domain.JobOutcome {
	return failureReason(job, stage, err.Error())
}

func failureReason(job domain.JobDescriptor, stage domain.Stage, reason string) domain.JobOutcome {
	return domain.JobOutcome{
		Job:    job,
		Stage:  stage,
		Reason: reason,
	}
}
