package provider

import "context"

// Extractor finds faces in an image and returns one embedding per face.
// An image without faces yields an empty slice and a nil error.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]DetectedFace, error)
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
	Embedding   []float32   `json:"embedding"`
}

// BoundingBox represents the face area in the image
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the box area in pixels².
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// Embeddings returns the embedding of every face, in detection order.
func Embeddings(faces []DetectedFace) [][]float32 {
	out := make([][]float32, 0, len(faces))
	for _, f := range faces {
		out = append(out, f.Embedding)
	}
	return out
}
