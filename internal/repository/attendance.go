package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

const defaultHistoryLimit = 500

// AttendanceRepository is the append-only attendance store.
type AttendanceRepository struct {
	pool PgxPool
}

func NewAttendanceRepository(pool PgxPool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

func (r *AttendanceRepository) Append(ctx context.Context, rec *domain.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (id, identity_id, display_name, recorded_at, station)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.IdentityID,
		rec.DisplayName,
		rec.Timestamp,
		rec.Station,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append attendance: record %s already exists: %w", rec.ID, err)
		}
		return fmt.Errorf("append attendance: %w", err)
	}

	return nil
}

// ListSince returns identityID's records at or after since, oldest first.
func (r *AttendanceRepository) ListSince(ctx context.Context, identityID string, since time.Time) ([]domain.AttendanceRecord, error) {
	query := `
		SELECT id, identity_id, display_name, recorded_at, station
		FROM attendance_records
		WHERE identity_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at
	`

	rows, err := r.pool.Query(ctx, query, identityID, since)
	if err != nil {
		return nil, fmt.Errorf("list attendance since: %w", err)
	}

	return collectRecords(rows)
}

// List returns records matching filter, newest first. Limit defaults to 500.
func (r *AttendanceRepository) List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error) {
	var (
		conds []string
		args  []any
	)
	if filter.IdentityID != "" {
		args = append(args, filter.IdentityID)
		conds = append(conds, fmt.Sprintf("identity_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("recorded_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("recorded_at < $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	args = append(args, limit)

	var sb strings.Builder
	sb.WriteString("SELECT id, identity_id, display_name, recorded_at, station FROM attendance_records")
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	fmt.Fprintf(&sb, " ORDER BY recorded_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]domain.AttendanceRecord, error) {
	defer rows.Close()

	out := []domain.AttendanceRecord{}
	for rows.Next() {
		var rec domain.AttendanceRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.IdentityID,
			&rec.DisplayName,
			&rec.Timestamp,
			&rec.Station,
		); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}

	return out, nil
}
