package provider

import (
	"context"
	"image"
)

// Detector finds faces in an encoded image and computes one embedding per
// face. Implementations wrap a model that is loaded once at startup.
type Detector interface {
	// Detect returns every face found in image. Regions are in the pixel
	// space of the image that was passed in.
	Detect(ctx context.Context, image []byte) ([]DetectedFace, error)

	// Close releases the model.
	Close() error
}

// DetectedFace is one face found by a Detector.
type DetectedFace struct {
	Region    image.Rectangle `json:"region"`
	Embedding []float64       `json:"-"`
}
