package deepface

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

// Provider implements provider.Detector using a DeepFace HTTP service
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

// Detect sends the image to /represent and keeps the results that are real
// faces with an embedding of the gallery dimension.
func (p *Provider) Detect(ctx context.Context, img []byte) ([]provider.DetectedFace, error) {
	imageBase64 := base64.StdEncoding.EncodeToString(img)

	resp, err := p.client.Represent(ctx, imageBase64)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(resp.Results))
	for _, result := range resp.Results {
		// With enforce_detection off, an empty frame comes back as one
		// whole-image result with zero confidence.
		if result.FaceConfidence != nil && *result.FaceConfidence <= 0 {
			continue
		}
		if result.FacialArea.W <= 0 || result.FacialArea.H <= 0 {
			continue
		}
		if len(result.Embedding) != domain.EmbeddingDimension {
			return nil, domain.ErrInvalidEmbedding.WithError(
				fmt.Errorf("deepface model returned %d dimensions", len(result.Embedding)))
		}

		faces = append(faces, provider.DetectedFace{
			Region: image.Rect(
				result.FacialArea.X,
				result.FacialArea.Y,
				result.FacialArea.X+result.FacialArea.W,
				result.FacialArea.Y+result.FacialArea.H,
			),
			Embedding: result.Embedding,
		})
	}

	return faces, nil
}

// Close is a no-op; the service owns the model.
func (p *Provider) Close() error {
	return nil
}

// Ensure Provider implements provider.Detector
var _ provider.Detector = (*Provider)(nil)
