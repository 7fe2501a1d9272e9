package face

import (
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/dlib"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider/mock"
)

// DetectorType defines supported face detector backends
type DetectorType string

const (
	// DetectorTypeDlib runs dlib in process (default, production)
	DetectorTypeDlib DetectorType = "dlib"
	// DetectorTypeDeepFace calls a DeepFace HTTP service
	DetectorTypeDeepFace DetectorType = "deepface"
	// DetectorTypeMock needs no model (development only)
	DetectorTypeMock DetectorType = "mock"
)

// NewDetector creates a Detector based on configuration.
//
// Environment variables:
//   - DETECTOR: "dlib", "deepface" or "mock" (default: "dlib")
//   - MODELS_DIR: directory holding the dlib .dat files (default: "./models")
//   - MIN_ASSET_BYTES: smallest acceptable model file (default: 1 MiB)
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
//   - DEEPFACE_RETRIES: extra attempts on a transient DeepFace failure (default: 0)
func NewDetector(cfg *config.Config) (provider.Detector, error) {
	switch DetectorType(cfg.Detector) {
	case DetectorTypeDlib, "":
		det, err := dlib.New(cfg.ModelsDir, cfg.MinAssetBytes)
		if err != nil {
			return nil, fmt.Errorf("create dlib detector from %s: %w", cfg.ModelsDir, err)
		}
		return det, nil

	case DetectorTypeDeepFace:
		return createDeepFaceDetector(cfg), nil

	case DetectorTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown detector type: %s (supported: %s, %s, %s)",
			cfg.Detector, DetectorTypeDlib, DetectorTypeDeepFace, DetectorTypeMock)
	}
}

// createDeepFaceDetector creates a DeepFace provider instance
func createDeepFaceDetector(cfg *config.Config) provider.Detector {
	return deepface.NewProvider(deepFaceConfig(cfg))
}

func deepFaceConfig(cfg *config.Config) deepface.Config {
	deepfaceConfig := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	// One slow answer must not stall more than a few frames.
	deepfaceConfig.Timeout = 2 * time.Second
	deepfaceConfig.RetryCount = max(cfg.DeepFaceRetries, 0)
	return deepfaceConfig
}
