package domain

import (
	"time"
)

// Enrollment representa uma identidade cadastrada na galeria
type Enrollment struct {
	IdentityID  string    `json:"identity_id"`
	DisplayName string    `json:"display_name"`
	Embedding   []float32 `json:"-"`
	ImageKey    string    `json:"image_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasEmbedding reports whether the enrollment can take part in matching
// without going back to the extractor.
func (e *Enrollment) HasEmbedding() bool {
	return len(e.Embedding) > 0
}
