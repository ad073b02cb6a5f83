// Package ledger decides and records attendance. An identity is written at
// most once per wall-clock hour: a record is due only when none exists at or
// after the start of the current hour.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

// Store is the append-only attendance backing store.
type Store interface {
	// ListSince returns identityID's records with a timestamp at or after since.
	ListSince(ctx context.Context, identityID string, since time.Time) ([]domain.AttendanceRecord, error)
	Append(ctx context.Context, rec *domain.AttendanceRecord) error
}

// HourBucket returns the start of t's wall-clock hour in t's location.
func HourBucket(t time.Time) time.Time {
	offset := time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	return t.Add(-offset).Round(0)
}

// IsDue reports whether no record in history falls inside now's hour bucket.
func IsDue(history []domain.AttendanceRecord, now time.Time) bool {
	bucket := HourBucket(now)
	for _, rec := range history {
		if !rec.Timestamp.Before(bucket) {
			return false
		}
	}
	return true
}

// RecordIfDue is the pure dedup decision. Only history entries belonging to
// identityID are considered. When due, the returned record is stamped with
// now and a fresh ID; nothing is persisted.
func RecordIfDue(identityID, displayName string, now time.Time, history []domain.AttendanceRecord) (bool, *domain.AttendanceRecord) {
	own := make([]domain.AttendanceRecord, 0, len(history))
	for _, rec := range history {
		if rec.IdentityID == identityID {
			own = append(own, rec)
		}
	}
	if !IsDue(own, now) {
		return false, nil
	}
	return true, &domain.AttendanceRecord{
		ID:          uuid.New(),
		IdentityID:  identityID,
		DisplayName: displayName,
		Timestamp:   now,
	}
}

// Visit identifies who was seen and where.
type Visit struct {
	IdentityID  string
	DisplayName string
	Station     string
}

// Ledger applies RecordIfDue against a Store. Calls for the same identity
// are serialized so the read-then-append check cannot race.
type Ledger struct {
	store  Store
	locks  *keyedMutex
	logger *slog.Logger
}

// New creates a ledger backed by store.
func New(store Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:  store,
		locks:  newKeyedMutex(),
		logger: logger.With("component", "ledger"),
	}
}

// RecordIfDue appends an attendance record for v unless one already exists
// in now's hour bucket. Store failures are returned as ErrLedgerWrite.
func (l *Ledger) RecordIfDue(ctx context.Context, v Visit, now time.Time) (bool, *domain.AttendanceRecord, error) {
	if v.IdentityID == "" {
		return false, nil, domain.ErrValidationFailed.WithError(fmt.Errorf("identity id is required"))
	}

	unlock := l.locks.Lock(v.IdentityID)
	defer unlock()

	history, err := l.store.ListSince(ctx, v.IdentityID, HourBucket(now))
	if err != nil {
		return false, nil, domain.ErrLedgerWrite.WithError(fmt.Errorf("read history for %s: %w", v.IdentityID, err))
	}

	due, rec := RecordIfDue(v.IdentityID, v.DisplayName, now, history)
	if !due {
		return false, nil, nil
	}
	rec.Station = v.Station

	if err := l.store.Append(ctx, rec); err != nil {
		return false, nil, domain.ErrLedgerWrite.WithError(fmt.Errorf("append record for %s: %w", v.IdentityID, err))
	}

	l.logger.Debug("attendance recorded",
		"identity_id", rec.IdentityID,
		"station", rec.Station,
		"timestamp", rec.Timestamp,
	)

	return true, rec, nil
}
