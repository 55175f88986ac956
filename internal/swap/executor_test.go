package swap

import (
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"faceswap/internal/domain"
	"faceswap/internal/face"
)

// fakeAnalyzer returns queued detection results in call order.
type fakeAnalyzer struct {
	results [][]face.Face
	errs    []error
	calls   int
}

// Detect pops the next queued result.
func (a *fakeAnalyzer) Detect(ctx context.Context, jpegData []byte) ([]face.Face, error) {
	call := a.calls
	a.calls++
	var faces []face.Face
	if call < len(a.results) {
		faces = a.results[call]
	}
	var err error
	if call < len(a.errs) {
		err = a.errs[call]
	}
	return faces, err
}

// fakeSwapper records swap invocations and copies input to output.
type fakeSwapper struct {
	swap  func(ctx context.Context, inputPath string, target face.Face, source face.Descriptor, outputPath string) error
	calls int
}

// Swap delegates to injected behavior, defaulting to a file copy.
func (s *fakeSwapper) Swap(ctx context.Context, inputPath string, target face.Face, source face.Descriptor, outputPath string) error {
	s.calls++
	if s.swap != nil {
		return s.swap(ctx, inputPath, target, source, outputPath)
	}
	return copyFile(inputPath, outputPath)
}

// copyFile duplicates one file for fake swap results.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// mustWriteJPEG writes a small decodable JPEG image at path.
func mustWriteJPEG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create image %s: %v", path, err)
	}
	if err := jpeg.Encode(file, img, nil); err != nil {
		t.Fatalf("encode image %s: %v", path, err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close image %s: %v", path, err)
	}
}

// oneFace builds a detection result with a single face.
func oneFace() []face.Face {
	return []face.Face{{Rect: image.Rect(10, 10, 40, 40)}}
}

// TestRunSuccessSwapsEveryTargetFace checks the full happy path with a
// multi-face target and a nested output directory.
func TestRunSuccessSwapsEveryTargetFace(t *testing.T) {
	root := t.TempDir()
	facePath := filepath.Join(root, "face.jpg")
	targetPath := filepath.Join(root, "target.jpg")
	outputPath := filepath.Join(root, "out", "nested", "result.jpg")
	mustWriteJPEG(t, facePath)
	mustWriteJPEG(t, targetPath)

	analyzer := &fakeAnalyzer{results: [][]face.Face{
		oneFace(),
		{{Rect: image.Rect(0, 0, 20, 20)}, {Rect: image.Rect(30, 0, 50, 20)}},
	}}
	swapper := &fakeSwapper{}

	executor := NewExecutorForTests(analyzer, swapper)
	var stages []domain.Stage
	executor.OnStage = func(stage domain.Stage) { stages = append(stages, stage) }

	var workDir string
	innerMkdirTemp := executor.mkdirTemp
	executor.mkdirTemp = func(dir, pattern string) (string, error) {
		path, err := innerMkdirTemp(dir, pattern)
		workDir = path
		return path, err
	}

	outcome := executor.Run(context.Background(), domain.JobDescriptor{
		FaceImage:   facePath,
		TargetImage: targetPath,
		Output:      outputPath,
	})

	if !outcome.Success {
		t.Fatalf("outcome = %+v, want success", outcome)
	}
	if outcome.OutputPath != outputPath {
		t.Fatalf("output path = %q, want %q", outcome.OutputPath, outputPath)
	}
	if swapper.calls != 2 {
		t.Fatalf("swap calls = %d, want one per target face", swapper.calls)
	}
	if _, err := os.Stat(outputPath); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if _, err := os.Stat(workDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected job workspace cleanup, stat err = %v", err)
	}

	wantStages := []domain.Stage{
		domain.StageLoadSource,
		domain.StageLoadTarget,
		domain.StageDetectSource,
		domain.StageDetectTarget,
		domain.StageSwap,
		domain.StagePersist,
	}
	if len(stages) != len(wantStages) {
		t.Fatalf("stages = %v, want %v", stages, wantStages)
	}
	for i := range wantStages {
		if stages[i] != wantStages[i] {
			t.Fatalf("stage %d = %s, want %s", i, stages[i], wantStages[i])
		}
	}
}

// TestRunMissingSourceImage checks the load-source failure tag.
func TestRunMissingSourceImage(t *testing.T) {
	root := t.TempDir()
	targetPath := filepath.Join(root, "target.jpg")
	mustWriteJPEG(t, targetPath)

	executor := NewExecutorForTests(&fakeAnalyzer{}, &fakeSwapper{})
	outcome := executor.Run(context.Background(), domain.JobDescriptor{
		FaceImage:   filepath.Join(root, "absent.jpg"),
		TargetImage: targetPath,
		Output:      filepath.Join(root, "out.jpg"),
	})

	if outcome.Success {
		t.Fatal("expected failure")
	}
	if outcome.Stage != domain.StageLoadSource {
		t.Fatalf("stage = %s, want %s", outcome.Stage, domain.StageLoadSource)
	}
	if outcome.Reason == "" {
		t.Fatal("expected non-empty failure reason")
	}
}

// TestRunCorruptTargetImage checks the load-target failure tag.
func TestRunCorruptTargetImage(t *testing.T) {
	root := t.TempDir()
	facePath := filepath.Join(root, "face.jpg")
	targetPath := filepath.Join(root, "target.jpg")
	mustWriteJPEG(t, facePath)
	if err := os.WriteFile(targetPath, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write corrupt target: %v", err)
	}

	executor := NewExecutorForTests(&fakeAnalyzer{}, &fakeSwapper{})
	outcome := executor.Run(context.Background(), domain.JobDescriptor{
		FaceImage:   facePath,
		TargetImage: targetPath,
		Output:      filepath.Join(root, "out.jpg"),
	})

	if outcome.Stage != domain.StageLoadTarget {
		t.Fatalf("stage = %s, want %s", outcome.Stage, domain.StageLoadTarget)
	}
}

// TestRunNoFaceInSourceImage checks the no-face detection outcome.
func TestRunNoFaceInSourceImage(t *testing.T) {
	root := t.TempDir()
	facePath := filepath.Join(root, "face.jpg")
	targetPath := filepath.Join(root, "target.jpg")
	mustWriteJPEG(t, facePath)
	mustWriteJPEG(t, targetPath)

	executor := NewExecutorForTests(&fakeAnalyzer{results: [][]face.Face{nil, oneFace()}}, &fakeSwapper{})
	outcome := executor.Run(context.Background(), domain.JobDescriptor{
		FaceImage:   facePath,
		TargetImage: targetPath,
		Output:      filepath.Join(root, "out.jpg"),
	})

	if outcome.Stage != domain.StageDetectSource {
		t.Fatalf("stage = %s, want %s", outcome.Stage, domain.StageDetectSource)
	}
	if outcome.Reason != noFaceReason {
		t.Fatalf("reason = %q, want %q", outcome.Reason, noFaceReason)
	}
}

// TestRunDetectTargetError checks analyzer error propagation for targets.
func TestRunDetectTargetError(t *testing.T) {
	root := t.TempDir()
	facePath := filepath.Join(root, "face.jpg")
	targetPath := filepath.Join(root, "target.jpg")
	mustWriteJPEG(t, facePath)
	mustWriteJPEG(t, targetPath)

	analyzer := &fakeAnalyzer{
		results: [][]face.Face{oneFace(), nil},
		errs:    []error{nil, errors.New("detector crashed")},
	}
	executor := NewExecutorForTests(analyzer, &fakeSwapper{})
	outcome := executor.Run(context.Background(), domain.JobDescriptor{
		FaceImage:   facePath,
		TargetImage: targetPath,
		Output:      filepath.Join(root, "out.jpg"),
	})

	if outcome.Stage != domain.StageDetectTarget {
		t.Fatalf("stage = %s, want %s", outcome.Stage, domain.StageDetectTarget)
	}
	if !strings.Contains(outcome.Reason, "detector crashed") {
		t.Fatalf("reason = %q", outcome.Reason)
	}
}

// TestRunSwapperFailure checks the swap failure tag.
func TestRunSwapperFailure(t *testing.T) {
	root := t.TempDir()
	facePath := filepath.Join(root, "face.jpg")
	targetPath := filepath.Join(root, "target.jpg")
	mustWriteJPEG(t, facePath)
	mustWriteJPEG(t, targetPath)

	swapper := &fakeSwapper{
		swap: func(ctx context.Context, inputPath string, target face.Face, source face.Descriptor, outputPath string) error {
			return errors.New("inswapper exploded")
		},
	}
	executor := NewExecutorForTests(&fakeAnalyzer{results: [][]face.Face{oneFace(), oneFace()}}, swapper)
	outcome := executor.Run(context.Background(), domain.JobDescriptor{
		FaceImage:   facePath,
		TargetImage: targetPath,
		Output:      filepath.Join(root, "out.jpg"),
	})

	if outcome.Stage != domain.StageSwap {
		t.Fatalf("stage = %s, want %s", outcome.Stage, domain.StageSwap)
	}
	if !strings.Contains(outcome.Reason, "inswapper exploded") {
		t.Fatalf("reason = %q", outcome.Reason)
	}
}

// TestRunEmptyOutputPathFailsPersist checks the persist failure tag.
func TestRunEmptyOutputPathFailsPersist(t *testing.T) {
	root := t.TempDir()
	facePath := filepath.Join(root, "face.jpg")
	targetPath := filepath.Join(root, "target.jpg")
	mustWriteJPEG(t, facePath)
	mustWriteJPEG(t, targetPath)

	executor := NewExecutorForTests(&fakeAnalyzer{results: [][]face.Face{oneFace(), oneFace()}}, &fakeSwapper{})
	outcome := executor.Run(context.Background(), domain.JobDescriptor{
		FaceImage:   facePath,
		TargetImage: targetPath,
	})

	if outcome.Stage != domain.StagePersist {
		t.Fatalf("stage = %s, want %s", outcome.Stage, domain.StagePersist)
	}
}

// TestLoadImageAsJPEGReencodesPNG checks decoding of non-JPEG inputs.
func TestLoadImageAsJPEGReencodesPNG(t *testing.T) {
	root := t.TempDir()
	pngPath := filepath.Join(root, "input.png")
	writePNG(t, pngPath)

	data, err := loadImageAsJPEG(pngPath)
	if err != nil {
		t.Fatalf("loadImageAsJPEG() error = %v", err)
	}
	if _, err := jpeg.Decode(strings.NewReader(string(data))); err != nil {
		t.Fatalf("result is not a decodable JPEG: %v", err)
	}
}

// writePNG writes a small PNG file at path.
func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close png: %v", err)
	}
}
