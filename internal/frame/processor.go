// Package frame runs every face of a captured frame through matching and
// the attendance ledger.
package frame

import (
	"context"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/gallery"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/ledger"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/matcher"
)

// Recorder is the part of the ledger the processor needs.
type Recorder interface {
	RecordIfDue(ctx context.Context, v ledger.Visit, now time.Time) (bool, *domain.AttendanceRecord, error)
}

// Processor matches faces and records attendance for accepted ones.
type Processor struct {
	threshold float64
	recorder  Recorder
	logger    *slog.Logger
}

// NewProcessor creates a processor. A non-positive threshold selects
// matcher.DefaultThreshold.
func NewProcessor(threshold float64, recorder Recorder, logger *slog.Logger) *Processor {
	if threshold <= 0 {
		threshold = matcher.DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		threshold: threshold,
		recorder:  recorder,
		logger:    logger.With("component", "frame"),
	}
}

// Threshold returns the acceptance threshold in use.
func (p *Processor) Threshold() float64 {
	return p.threshold
}

// Process returns one result per query, in query order. Faces are handled
// independently: a malformed query or a failed ledger write is reported on
// that face only. Unmatched faces never reach the ledger.
func (p *Processor) Process(ctx context.Context, station string, queries [][]float32, g *gallery.Gallery, now time.Time) []domain.FaceResult {
	results := make([]domain.FaceResult, len(queries))

	for i, q := range queries {
		match, err := matcher.Match(q, g, p.threshold)
		if err != nil {
			p.logger.Warn("face skipped", "index", i, "error", err)
			results[i] = domain.FaceResult{Err: err}
			continue
		}

		results[i] = domain.FaceResult{MatchResult: match}
		if !match.Matched {
			continue
		}

		written, rec, err := p.recorder.RecordIfDue(ctx, ledger.Visit{
			IdentityID:  match.IdentityID,
			DisplayName: match.DisplayName,
			Station:     station,
		}, now)
		if err != nil {
			p.logger.Error("attendance not recorded",
				"identity_id", match.IdentityID,
				"error", err,
			)
			results[i].Err = err
			continue
		}

		results[i].Recorded = written
		results[i].Record = rec
	}

	return results
}
