// Package mock is a model-free Detector for development without dlib or a
// DeepFace service.
package mock

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	_ "image/jpeg"
	"math"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
)

const minImageBytes = 100

// Provider reports one face in the middle of every image, with an
// embedding derived from the image bytes. Same bytes, same embedding.
type Provider struct{}

// New returns a model-free Provider.
func New() *Provider {
	return &Provider{}
}

func (p *Provider) Detect(ctx context.Context, img []byte) ([]provider.DetectedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(img) < minImageBytes {
		return nil, domain.ErrInvalidInput.WithError(fmt.Errorf("image has %d bytes", len(img)))
	}

	return []provider.DetectedFace{
		{
			Region:    centerRegion(img),
			Embedding: generateEmbedding(img),
		},
	}, nil
}

func (p *Provider) Close() error {
	return nil
}

// centerRegion covers the middle half of the image, or a fixed box when the
// bytes are not a decodable image.
func centerRegion(img []byte) image.Rectangle {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return image.Rect(80, 60, 240, 180)
	}
	return image.Rect(cfg.Width/4, cfg.Height/4, cfg.Width*3/4, cfg.Height*3/4)
}

// generateEmbedding gera embedding determinístico baseado no hash da imagem
func generateEmbedding(img []byte) []float64 {
	hash := sha256.Sum256(img)
	embedding := make([]float64, domain.EmbeddingDimension)
	hashLen := len(hash)

	for i := 0; i < domain.EmbeddingDimension; i++ {
		idx := (i * 7) % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx]^byte(i))/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return embedding
	}

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

var _ provider.Detector = (*Provider)(nil)
