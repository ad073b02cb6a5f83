package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

type EnrollmentRepository struct {
	pool PgxPool
}

func NewEnrollmentRepository(pool PgxPool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// Upsert inserts or replaces the enrollment for e.IdentityID. A replaced row
// keeps its original created_at.
func (r *EnrollmentRepository) Upsert(ctx context.Context, e *domain.Enrollment) error {
	query := `
		INSERT INTO enrollments (identity_id, display_name, embedding, image_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (identity_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			embedding = EXCLUDED.embedding,
			image_key = EXCLUDED.image_key,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	var embedding *pgvector.Vector
	if e.HasEmbedding() {
		vec := pgvector.NewVector(e.Embedding)
		embedding = &vec
	}

	err := r.pool.QueryRow(ctx, query,
		e.IdentityID,
		e.DisplayName,
		embedding,
		e.ImageKey,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert enrollment: %w", err)
	}

	return nil
}

func (r *EnrollmentRepository) Get(ctx context.Context, identityID string) (*domain.Enrollment, error) {
	query := `
		SELECT identity_id, display_name, embedding, image_key, created_at, updated_at
		FROM enrollments
		WHERE identity_id = $1
	`

	e, err := scanEnrollment(r.pool.QueryRow(ctx, query, identityID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}

	return e, nil
}

// ListAll returns every enrollment in gallery order (first enrolled first).
func (r *EnrollmentRepository) ListAll(ctx context.Context) ([]domain.Enrollment, error) {
	query := `
		SELECT identity_id, display_name, embedding, image_key, created_at, updated_at
		FROM enrollments
		ORDER BY created_at, identity_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}

	return out, nil
}

func (r *EnrollmentRepository) Delete(ctx context.Context, identityID string) error {
	query := `
		DELETE FROM enrollments
		WHERE identity_id = $1
	`

	result, err := r.pool.Exec(ctx, query, identityID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrEnrollmentNotFound
	}

	return nil
}

func scanEnrollment(row pgx.Row) (*domain.Enrollment, error) {
	var e domain.Enrollment
	var embedding *pgvector.Vector

	if err := row.Scan(
		&e.IdentityID,
		&e.DisplayName,
		&embedding,
		&e.ImageKey,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if embedding != nil && len(embedding.Slice()) > 0 {
		e.Embedding = embedding.Slice()
	}

	return &e, nil
}
