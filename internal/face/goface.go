package face

import (
	"context"
	"fmt"
	"image"

	goface "github.com/Kagami/go-face"
)

// goFaceAnalyzer wraps a dlib-backed go-face recognizer.
type goFaceAnalyzer struct {
	rec *goface.Recognizer
}

// newGoFaceAnalyzer loads the detector, landmark, and recognition models
// from dataDir. Loading the weights is the expensive part; it happens once
// per engine, never per job.
func newGoFaceAnalyzer(dataDir string) (*goFaceAnalyzer, error) {
	rec, err := goface.NewRecognizer(dataDir)
	if err != nil {
		return nil, fmt.Errorf("load face analysis models from %s: %w", dataDir, err)
	}
	return &goFaceAnalyzer{rec: rec}, nil
}

// Detect runs face detection and identity embedding on JPEG data.
func (a *goFaceAnalyzer) Detect(ctx context.Context, jpegData []byte) ([]Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detected, err := a.rec.Recognize(jpegData)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]Face, 0, len(detected))
	for _, d := range detected {
		faces = append(faces, Face{
			Rect:       d.Rectangle,
			Landmarks:  append([]image.Point(nil), d.Shapes...),
			Descriptor: Descriptor(d.Descriptor),
		})
	}
	return faces, nil
}

// Close releases the underlying dlib resources.
func (a *goFaceAnalyzer) Close() {
	a.rec.Close()
}
