// Package gallery holds the in-memory set of enrolled embeddings used for
// matching. A Gallery is immutable once built; reloads build a new Gallery
// and swap it into a Holder so concurrent readers never observe a partial
// update.
package gallery

import (
	"sync/atomic"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

// Gallery is an ordered, read-only snapshot of enrollments.
type Gallery struct {
	entries   []domain.Enrollment
	index     map[string]int
	dimension int
}

// Empty returns a gallery with no entries.
func Empty() *Gallery {
	return &Gallery{index: map[string]int{}}
}

// Load builds a gallery from persisted enrollments. Entries without an
// embedding are skipped, as are entries whose length differs from the first
// usable one. A repeated identity replaces the earlier record in place.
func Load(enrollments []domain.Enrollment) *Gallery {
	g := &Gallery{
		entries: make([]domain.Enrollment, 0, len(enrollments)),
		index:   make(map[string]int, len(enrollments)),
	}

	for _, e := range enrollments {
		if !e.HasEmbedding() {
			continue
		}
		if g.dimension == 0 {
			g.dimension = len(e.Embedding)
		}
		if len(e.Embedding) != g.dimension {
			continue
		}

		// Copy so later mutation of the caller's slice can't leak in.
		e.Embedding = append([]float32(nil), e.Embedding...)

		if i, ok := g.index[e.IdentityID]; ok {
			g.entries[i] = e
			continue
		}
		g.index[e.IdentityID] = len(g.entries)
		g.entries = append(g.entries, e)
	}

	return g
}

// All returns the entries in gallery order. The slice must not be modified.
func (g *Gallery) All() []domain.Enrollment {
	return g.entries
}

// Len returns the number of enrolled identities.
func (g *Gallery) Len() int {
	return len(g.entries)
}

// Dimension returns the embedding length shared by every entry, or 0 for
// an empty gallery.
func (g *Gallery) Dimension() int {
	return g.dimension
}

// Lookup returns the enrollment for identityID.
func (g *Gallery) Lookup(identityID string) (domain.Enrollment, bool) {
	i, ok := g.index[identityID]
	if !ok {
		return domain.Enrollment{}, false
	}
	return g.entries[i], true
}

// Holder owns the current gallery snapshot.
type Holder struct {
	current atomic.Pointer[Gallery]
}

// NewHolder returns a holder seeded with g, or an empty gallery if g is nil.
func NewHolder(g *Gallery) *Holder {
	h := &Holder{}
	if g == nil {
		g = Empty()
	}
	h.current.Store(g)
	return h
}

// Snapshot returns the gallery in effect right now.
func (h *Holder) Snapshot() *Gallery {
	return h.current.Load()
}

// Swap installs g and returns the previous snapshot.
func (h *Holder) Swap(g *Gallery) *Gallery {
	if g == nil {
		g = Empty()
	}
	return h.current.Swap(g)
}
