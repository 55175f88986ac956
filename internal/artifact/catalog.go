package artifact

import (
	"path/filepath"

	"faceswap/internal/domain"
)

// SwapModelID identifies the face swap model in the catalog.
const SwapModelID = "inswapper_128"

var modelCatalog = []domain.SwapModelOption{
	{
		ID:       SwapModelID,
		Name:     "INSwapper 128",
		FileName: "inswapper_128.onnx",
		Mirrors: []string{
			"https://huggingface.co/ezioruan/inswapper_128.onnx/resolve/main/inswapper_128.onnx",
			"https://huggingface.co/Aitrepreneur/insightface/resolve/main/inswapper_128.onnx",
		},
		SizeLabel:   "~554 MB",
		Description: "Face swap model used for compositing.",
	},
	{
		ID:       "shape_predictor",
		Name:     "Face landmark predictor",
		FileName: "shape_predictor_5_face_landmarks.dat",
		Mirrors: []string{
			"https://raw.githubusercontent.com/Kagami/go-face-testdata/master/models/shape_predictor_5_face_landmarks.dat",
		},
		SizeLabel:   "~9 MB",
		Description: "Five-point landmark model for face alignment.",
	},
	{
		ID:       "recognition_resnet",
		Name:     "Face recognition network",
		FileName: "dlib_face_recognition_resnet_model_v1.dat",
		Mirrors: []string{
			"https://raw.githubusercontent.com/Kagami/go-face-testdata/master/models/dlib_face_recognition_resnet_model_v1.dat",
		},
		SizeLabel:   "~22 MB",
		Description: "Identity embedding network for detected faces.",
	},
	{
		ID:       "face_detector",
		Name:     "Face detector",
		FileName: "mmod_human_face_detector.dat",
		Mirrors: []string{
			"https://raw.githubusercontent.com/Kagami/go-face-testdata/master/models/mmod_human_face_detector.dat",
		},
		SizeLabel:   "~700 KB",
		Description: "CNN face detector for source and target images.",
	},
}

// Catalog returns the built-in model artifact presets.
func Catalog() []domain.SwapModelOption {
	models := make([]domain.SwapModelOption, len(modelCatalog))
	copy(models, modelCatalog)
	return models
}

// SwapModelPath returns the canonical swap model path under dir.
func SwapModelPath(dir string) string {
	opt, _ := CatalogOption(SwapModelID)
	return filepath.Join(dir, opt.FileName)
}

// CatalogOption returns the preset with the given ID.
func CatalogOption(id string) (domain.SwapModelOption, bool) {
	for _, model := range modelCatalog {
		if model.ID == id {
			return model, true
		}
	}
	return domain.SwapModelOption{}, false
}
