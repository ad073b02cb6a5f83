package mock

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/provider"
)

// DefaultDimension bate com o tamanho do embedding do modelo Dlib
const DefaultDimension = 128

// minImageSize abaixo disso a imagem é tratada como corrompida
const minImageSize = 1000

// Provider implementa provider.Extractor para testes e desenvolvimento
type Provider struct {
	dimension int
}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{dimension: DefaultDimension}
}

// NewWithDimension cria um mock que gera embeddings de tamanho dim
func NewWithDimension(dim int) *Provider {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Provider{dimension: dim}
}

// Extract gera um embedding determinístico baseado no hash da imagem.
// Imagens totalmente zeradas simulam um quadro sem rostos.
func (p *Provider) Extract(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage
	}
	if isBlank(image) {
		return []provider.DetectedFace{}, nil
	}

	return []provider.DetectedFace{
		{
			BoundingBox: provider.BoundingBox{
				X:      0.1,
				Y:      0.1,
				Width:  0.8,
				Height: 0.8,
			},
			Confidence: 0.99,
			Embedding:  generateEmbedding(image, p.dimension),
		},
	}, nil
}

func isBlank(image []byte) bool {
	for _, b := range image {
		if b != 0 {
			return false
		}
	}
	return true
}

// generateEmbedding gera embedding determinístico baseado no hash da imagem
func generateEmbedding(image []byte, dim int) []float32 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, dim)
	hashLen := len(hash)

	for i := 0; i < dim; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, dim)
	for i, v := range embedding {
		if norm > 0 {
			v /= norm
		}
		out[i] = float32(v)
	}

	return out
}

var _ provider.Extractor = (*Provider)(nil)
