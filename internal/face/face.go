package face

import (
	"context"
	"image"
)

// Descriptor is the 128-dimensional identity embedding of one face.
type Descriptor [128]float32

// Face is one detected face: its bounding region, alignment landmarks,
// and identity descriptor. Faces are transient, scoped to a single job.
type Face struct {
	Rect       image.Rectangle
	Landmarks  []image.Point
	Descriptor Descriptor
}

// Analyzer detects faces in a JPEG-encoded image. The returned slice
// preserves the detector's native ordering and is empty when no face
// is found.
type Analyzer interface {
	Detect(ctx context.Context, jpegData []byte) ([]Face, error)
}

// Swapper composites a source identity into one target face region,
// reading the image at inputPath and writing the result to outputPath.
// It is invoked once per target face, sequentially composing.
type Swapper interface {
	Swap(ctx context.Context, inputPath string, target Face, source Descriptor, outputPath string) error
}
