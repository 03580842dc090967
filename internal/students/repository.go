package students

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classlive/backend/internal/models"
)

// Repository handles durable student identities. Identity is keyed by display
// name: a reconnect with the same name reuses the existing row and id.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a students repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert creates or reactivates the student record for name and returns its
// stable id.
func (r *Repository) Upsert(ctx context.Context, name string, joinedAt time.Time) (uuid.UUID, error) {
	const query = `INSERT INTO students (name, joined_at, is_active) VALUES ($1, $2, TRUE)
		ON CONFLICT (name) DO UPDATE SET is_active = TRUE, joined_at = EXCLUDED.joined_at
		RETURNING id`
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query, name, joinedAt).Scan(&id)
	return id, err
}

// SetInactive marks a student record inactive (disconnect or kick).
func (r *Repository) SetInactive(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE students SET is_active = FALSE WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ListActive returns currently active students, oldest join first.
func (r *Repository) ListActive(ctx context.Context) ([]models.Student, error) {
	const query = `SELECT id, name, joined_at, is_active FROM students
		WHERE is_active ORDER BY joined_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Student
	for rows.Next() {
		var s models.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.JoinedAt, &s.IsActive); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
