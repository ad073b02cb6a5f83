package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/config"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/provider"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/provider/mock"
)

// ExtractorType defines supported embedding extractor types
type ExtractorType string

const (
	// ExtractorTypeDeepFace calls a DeepFace HTTP service
	ExtractorTypeDeepFace ExtractorType = "deepface"
	// ExtractorTypeMock derives embeddings from the image hash (dev/test only)
	ExtractorTypeMock ExtractorType = "mock"
)

// NewExtractor creates an Extractor based on configuration
//
// Environment variables:
//   - EXTRACTOR: "deepface" or "mock" (default: "deepface")
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
//   - DEEPFACE_MODEL: DeepFace model name (default: "Dlib")
//   - EMBEDDING_DIM: embedding length produced by the mock extractor
func NewExtractor(cfg *config.Config) (provider.Extractor, error) {
	switch ExtractorType(cfg.Extractor) {
	case ExtractorTypeDeepFace, "":
		return createDeepFaceExtractor(cfg), nil

	case ExtractorTypeMock:
		return mock.NewWithDimension(cfg.EmbeddingDim), nil

	default:
		return nil, fmt.Errorf("unknown extractor type: %s (supported: %s, %s)",
			cfg.Extractor, ExtractorTypeDeepFace, ExtractorTypeMock)
	}
}

func createDeepFaceExtractor(cfg *config.Config) provider.Extractor {
	dfConfig := deepface.DefaultConfig()

	if cfg.DeepFaceURL != "" {
		dfConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		dfConfig.Model = cfg.DeepFaceModel
	}

	return deepface.NewProvider(dfConfig)
}
