// Package dlib detects faces and computes 128-d embeddings with dlib's
// ResNet model through go-face.
package dlib

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// Models lists the files go-face loads from the models directory.
var Models = []string{
	"shape_predictor_5_face_landmarks.dat",
	"dlib_face_recognition_resnet_model_v1.dat",
	"mmod_human_face_detector.dat",
}

// Detector implements provider.Detector. The underlying recognizer is not
// safe for concurrent use.
type Detector struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// New validates the model files and loads them.
func New(modelsDir string, minAssetBytes int64) (*Detector, error) {
	if err := provider.ValidateAssets(modelsDir, Models, minAssetBytes); err != nil {
		return nil, err
	}

	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, domain.ErrAssetInvalid.WithError(fmt.Errorf("load dlib models: %w", err))
	}

	return &Detector{rec: rec}, nil
}

// Detect runs the HOG detector over a JPEG image.
func (d *Detector) Detect(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rec == nil {
		return nil, domain.ErrDeviceUnavailable.WithError(fmt.Errorf("detector closed"))
	}

	faces, err := d.rec.Recognize(image)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}

	detected := make([]provider.DetectedFace, 0, len(faces))
	for _, f := range faces {
		embedding := make([]float64, len(f.Descriptor))
		for i, v := range f.Descriptor {
			embedding[i] = float64(v)
		}
		detected = append(detected, provider.DetectedFace{
			Region:    f.Rectangle,
			Embedding: embedding,
		})
	}

	return detected, nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rec != nil {
		d.rec.Close()
		d.rec = nil
	}
	return nil
}

var _ provider.Detector = (*Detector)(nil)
