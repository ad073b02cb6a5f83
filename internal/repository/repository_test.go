package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

var enrollmentColumns = []string{"identity_id", "display_name", "embedding", "image_key", "created_at", "updated_at"}

// EnrollmentRepository Tests

func TestEnrollmentRepository_Upsert(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		enrollment *domain.Enrollment
		mockSetup  func(mock pgxmock.PgxPoolIface)
		wantErr    bool
	}{
		{
			name: "insert with embedding",
			enrollment: &domain.Enrollment{
				IdentityID:  "42",
				DisplayName: "Ana",
				Embedding:   []float32{0.1, 0.2, 0.3},
				ImageKey:    "42.jpg",
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				vec := pgvector.NewVector([]float32{0.1, 0.2, 0.3})
				mock.ExpectQuery(`INSERT INTO enrollments .* ON CONFLICT \(identity_id\) DO UPDATE SET`).
					WithArgs("42", "Ana", &vec, "42.jpg").
					WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
			},
		},
		{
			name: "insert without embedding stores null",
			enrollment: &domain.Enrollment{
				IdentityID:  "43",
				DisplayName: "Bruno",
				ImageKey:    "43.jpg",
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				var nilVec *pgvector.Vector
				mock.ExpectQuery(`INSERT INTO enrollments`).
					WithArgs("43", "Bruno", nilVec, "43.jpg").
					WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
			},
		},
		{
			name:       "database error",
			enrollment: &domain.Enrollment{IdentityID: "44", DisplayName: "Carla"},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO enrollments`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewEnrollmentRepository(mock)
			err = repo.Upsert(context.Background(), tt.enrollment)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "upsert enrollment")
			} else {
				require.NoError(t, err)
				assert.Equal(t, now, tt.enrollment.CreatedAt)
				assert.Equal(t, now, tt.enrollment.UpdatedAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEnrollmentRepository_Get(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		want      *domain.Enrollment
		wantErr   error
	}{
		{
			name: "found with embedding",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				vec := pgvector.NewVector([]float32{0.5, 0.25})
				rows := pgxmock.NewRows(enrollmentColumns).
					AddRow("42", "Ana", &vec, "42.jpg", now, now)

				mock.ExpectQuery(`SELECT identity_id, display_name, embedding, image_key, created_at, updated_at FROM enrollments WHERE identity_id = \$1`).
					WithArgs("42").
					WillReturnRows(rows)
			},
			want: &domain.Enrollment{
				IdentityID:  "42",
				DisplayName: "Ana",
				Embedding:   []float32{0.5, 0.25},
				ImageKey:    "42.jpg",
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		},
		{
			name: "not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM enrollments WHERE identity_id = \$1`).
					WithArgs("42").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrEnrollmentNotFound,
		},
		{
			name: "database error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM enrollments WHERE identity_id = \$1`).
					WithArgs("42").
					WillReturnError(errors.New("timeout"))
			},
			wantErr: errors.New("get enrollment: timeout"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewEnrollmentRepository(mock)
			got, err := repo.Get(context.Background(), "42")

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrEnrollmentNotFound) {
					assert.ErrorIs(t, err, domain.ErrEnrollmentNotFound)
				} else {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEnrollmentRepository_ListAll(t *testing.T) {
	now := time.Now()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	vec := pgvector.NewVector([]float32{1, 2})
	var noVec *pgvector.Vector
	rows := pgxmock.NewRows(enrollmentColumns).
		AddRow("1", "Ana", &vec, "1.jpg", now, now).
		AddRow("2", "Bruno", noVec, "2.jpg", now.Add(time.Second), now)

	mock.ExpectQuery(`SELECT .* FROM enrollments ORDER BY created_at, identity_id`).
		WillReturnRows(rows)

	repo := NewEnrollmentRepository(mock)
	got, err := repo.ListAll(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []float32{1, 2}, got[0].Embedding)
	assert.Equal(t, "2", got[1].IdentityID)
	assert.False(t, got[1].HasEmbedding())
	assert.Equal(t, "2.jpg", got[1].ImageKey)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepository_Delete(t *testing.T) {
	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "successful deletion",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM enrollments WHERE identity_id = \$1`).
					WithArgs("42").
					WillReturnResult(pgxmock.NewResult("DELETE", 1))
			},
		},
		{
			name: "not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM enrollments WHERE identity_id = \$1`).
					WithArgs("42").
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
			},
			wantErr: domain.ErrEnrollmentNotFound,
		},
		{
			name: "database error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM enrollments WHERE identity_id = \$1`).
					WithArgs("42").
					WillReturnError(errors.New("constraint violation"))
			},
			wantErr: errors.New("delete enrollment: constraint violation"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewEnrollmentRepository(mock)
			err = repo.Delete(context.Background(), "42")

			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
			case errors.Is(tt.wantErr, domain.ErrEnrollmentNotFound):
				assert.ErrorIs(t, err, domain.ErrEnrollmentNotFound)
			default:
				require.Error(t, err)
				assert.Equal(t, tt.wantErr.Error(), err.Error())
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// AttendanceRepository Tests

var attendanceColumns = []string{"id", "identity_id", "display_name", "recorded_at", "station"}

func TestAttendanceRepository_Append(t *testing.T) {
	rec := &domain.AttendanceRecord{
		ID:          uuid.New(),
		IdentityID:  "42",
		DisplayName: "Ana",
		Timestamp:   time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Station:     "front",
	}

	t.Run("success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO attendance_records \(id, identity_id, display_name, recorded_at, station\)`).
			WithArgs(rec.ID, "42", "Ana", rec.Timestamp, "front").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewAttendanceRepository(mock).Append(context.Background(), rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO attendance_records`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

		err = NewAttendanceRepository(mock).Append(context.Background(), rec)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})
}

func TestAttendanceRepository_ListSince(t *testing.T) {
	since := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	id := uuid.New()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(attendanceColumns).
		AddRow(id, "42", "Ana", since.Add(5*time.Minute), "front")

	mock.ExpectQuery(`FROM attendance_records WHERE identity_id = \$1 AND recorded_at >= \$2 ORDER BY recorded_at`).
		WithArgs("42", since).
		WillReturnRows(rows)

	got, err := NewAttendanceRepository(mock).ListSince(context.Background(), "42", since)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "front", got[0].Station)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_ListSince_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM attendance_records`).
		WithArgs("42", pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	_, err = NewAttendanceRepository(mock).ListSince(context.Background(), "42", time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list attendance since")
}

func TestAttendanceRepository_List(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	tests := []struct {
		name      string
		filter    domain.AttendanceFilter
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "no filter uses default limit",
			filter:    domain.AttendanceFilter{},
			wantQuery: `FROM attendance_records ORDER BY recorded_at DESC LIMIT \$1`,
			wantArgs:  []any{defaultHistoryLimit},
		},
		{
			name:      "identity only",
			filter:    domain.AttendanceFilter{IdentityID: "42", Limit: 10},
			wantQuery: `FROM attendance_records WHERE identity_id = \$1 ORDER BY recorded_at DESC LIMIT \$2`,
			wantArgs:  []any{"42", 10},
		},
		{
			name:      "all bounds",
			filter:    domain.AttendanceFilter{IdentityID: "42", From: from, To: to, Limit: 5},
			wantQuery: `WHERE identity_id = \$1 AND recorded_at >= \$2 AND recorded_at < \$3 ORDER BY recorded_at DESC LIMIT \$4`,
			wantArgs:  []any{"42", from, to, 5},
		},
		{
			name:      "time window only",
			filter:    domain.AttendanceFilter{From: from, To: to},
			wantQuery: `WHERE recorded_at >= \$1 AND recorded_at < \$2 ORDER BY recorded_at DESC LIMIT \$3`,
			wantArgs:  []any{from, to, defaultHistoryLimit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery(tt.wantQuery).
				WithArgs(tt.wantArgs...).
				WillReturnRows(pgxmock.NewRows(attendanceColumns).
					AddRow(uuid.New(), "42", "Ana", from.Add(time.Hour), ""))

			got, err := NewAttendanceRepository(mock).List(context.Background(), tt.filter)

			require.NoError(t, err)
			assert.Len(t, got, 1)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "pg error 23505",
			err:  &pgconn.PgError{Code: "23505"},
			want: true,
		},
		{
			name: "wrapped pg error",
			err:  fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}),
			want: true,
		},
		{
			name: "other pg error",
			err:  &pgconn.PgError{Code: "23503"},
			want: false,
		},
		{
			name: "message with duplicate key",
			err:  fmt.Errorf("duplicate key value violates unique constraint"),
			want: true,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "different error",
			err:  fmt.Errorf("connection timeout"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
