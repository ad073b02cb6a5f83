// Package matcher identifies a face embedding against a gallery by
// Euclidean nearest neighbour with a fixed acceptance threshold.
package matcher

import (
	"fmt"
	"math"

	"github.com/hupe1980/vecgo/distance"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/gallery"
)

// DefaultThreshold is the maximum distance (exclusive) accepted as a match.
const DefaultThreshold = 0.6

// Distance returns the Euclidean distance between a and b, which must have
// the same length.
func Distance(a, b []float32) float64 {
	return math.Sqrt(float64(distance.SquaredL2(a, b)))
}

// Match compares query against every gallery entry and accepts the closest
// one when its distance is strictly below threshold. Ties go to the entry
// enrolled first. A non-positive threshold selects DefaultThreshold.
//
// An empty (or nil) gallery is a no-match, not an error. A query whose
// length differs from the gallery dimension, or that holds a NaN or infinite
// component, fails with ErrMalformedQuery.
func Match(query []float32, g *gallery.Gallery, threshold float64) (domain.MatchResult, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if g == nil || g.Len() == 0 {
		return domain.MatchResult{}, nil
	}
	if len(query) != g.Dimension() {
		return domain.MatchResult{}, domain.ErrMalformedQuery.WithError(
			fmt.Errorf("query has %d dimensions, gallery has %d", len(query), g.Dimension()))
	}
	for i, v := range query {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return domain.MatchResult{}, domain.ErrMalformedQuery.WithError(
				fmt.Errorf("query component %d is not finite", i))
		}
	}

	entries := g.All()
	best := -1
	var bestSq float32
	for i := range entries {
		d := distance.SquaredL2(query, entries[i].Embedding)
		// strict comparison keeps the earliest index on ties
		if best < 0 || d < bestSq {
			best = i
			bestSq = d
		}
	}

	dist := math.Sqrt(float64(bestSq))
	if dist >= threshold {
		return domain.MatchResult{Distance: dist}, nil
	}

	return domain.MatchResult{
		Matched:     true,
		IdentityID:  entries[best].IdentityID,
		DisplayName: entries[best].DisplayName,
		Distance:    dist,
	}, nil
}
