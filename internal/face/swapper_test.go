package face

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner simulates swapper tool execution.
type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (commandResult, error)
}

// Run delegates to injected behavior.
func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if f.run == nil {
		return commandResult{}, nil
	}
	return f.run(ctx, name, args...)
}

// argValue returns the value following a flag in an argument list.
func argValue(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// TestExecSwapperSwapInvokesToolWithSpec checks the CLI contract: the
// model, input, output and a parseable spec file are all passed.
func TestExecSwapperSwapInvokesToolWithSpec(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "in.jpg")
	outputPath := filepath.Join(root, "out.jpg")

	target := Face{
		Rect:      image.Rect(10, 20, 110, 140),
		Landmarks: []image.Point{{X: 30, Y: 50}, {X: 80, Y: 50}},
	}
	var source Descriptor
	source[0] = 0.5
	source[127] = -1.25

	var gotSpec swapSpec
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			if name != "inswapper-test" {
				t.Fatalf("tool = %q, want inswapper-test", name)
			}
			if got := argValue(args, "-m"); got != "/models/inswapper_128.onnx" {
				t.Fatalf("-m = %q", got)
			}
			if got := argValue(args, "-i"); got != inputPath {
				t.Fatalf("-i = %q", got)
			}
			if got := argValue(args, "-o"); got != outputPath {
				t.Fatalf("-o = %q", got)
			}

			specData, err := os.ReadFile(argValue(args, "-f"))
			if err != nil {
				t.Fatalf("read spec file: %v", err)
			}
			if err := json.Unmarshal(specData, &gotSpec); err != nil {
				t.Fatalf("parse spec file: %v", err)
			}

			if err := os.WriteFile(outputPath, []byte("composited"), 0o644); err != nil {
				t.Fatalf("write output: %v", err)
			}
			return commandResult{ExitCode: 0}, nil
		},
	}

	swapper := newExecSwapperForTests("inswapper-test", "/models/inswapper_128.onnx", runner)
	if err := swapper.Swap(context.Background(), inputPath, target, source, outputPath); err != nil {
		t.Fatalf("Swap() error = %v", err)
	}

	if gotSpec.TargetRect != [4]int{10, 20, 110, 140} {
		t.Fatalf("target rect = %v", gotSpec.TargetRect)
	}
	if len(gotSpec.TargetLandmarks) != 2 || gotSpec.TargetLandmarks[0] != [2]int{30, 50} {
		t.Fatalf("landmarks = %v", gotSpec.TargetLandmarks)
	}
	if gotSpec.SourceEmbedding[0] != 0.5 || gotSpec.SourceEmbedding[127] != -1.25 {
		t.Fatalf("embedding = [%v ... %v]", gotSpec.SourceEmbedding[0], gotSpec.SourceEmbedding[127])
	}
}

// TestExecSwapperFailureIncludesStderr checks tool error reporting.
func TestExecSwapperFailureIncludesStderr(t *testing.T) {
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			return commandResult{Stderr: "model shape mismatch", ExitCode: 3}, errors.New("exit status 3")
		},
	}

	swapper := newExecSwapperForTests("inswapper", "/models/m.onnx", runner)
	err := swapper.Swap(context.Background(), "/in.jpg", Face{}, Descriptor{}, "/out.jpg")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model shape mismatch") {
		t.Fatalf("error lacks stderr detail: %v", err)
	}
	if !strings.Contains(err.Error(), "exit 3") {
		t.Fatalf("error lacks exit code: %v", err)
	}
}

// TestExecSwapperMissingOutputFails checks the post-run output check.
func TestExecSwapperMissingOutputFails(t *testing.T) {
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			return commandResult{ExitCode: 0}, nil
		},
	}

	swapper := newExecSwapperForTests("inswapper", "/models/m.onnx", runner)
	outputPath := filepath.Join(t.TempDir(), "never-written.jpg")
	err := swapper.Swap(context.Background(), "/in.jpg", Face{}, Descriptor{}, outputPath)
	if err == nil {
		t.Fatal("expected error for missing output image")
	}
	if !strings.Contains(err.Error(), "output image is missing") {
		t.Fatalf("error = %v", err)
	}
}

// TestExecSwapperRemovesSpecFile checks temp spec cleanup.
func TestExecSwapperRemovesSpecFile(t *testing.T) {
	root := t.TempDir()
	outputPath := filepath.Join(root, "out.jpg")

	var specPath string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			specPath = argValue(args, "-f")
			if _, err := os.Stat(specPath); err != nil {
				t.Fatalf("spec file missing during run: %v", err)
			}
			if err := os.WriteFile(outputPath, []byte("x"), 0o644); err != nil {
				t.Fatalf("write output: %v", err)
			}
			return commandResult{}, nil
		},
	}

	swapper := newExecSwapperForTests("inswapper", "/models/m.onnx", runner)
	if err := swapper.Swap(context.Background(), "/in.jpg", Face{}, Descriptor{}, outputPath); err != nil {
		t.Fatalf("Swap() error = %v", err)
	}
	if _, err := os.Stat(specPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected spec cleanup, stat err = %v", err)
	}
}
