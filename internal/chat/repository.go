package chat

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classlive/backend/internal/models"
)

// Repository handles chat message persistence, append-only.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends a chat message.
func (r *Repository) Insert(ctx context.Context, m *models.ChatMessage) error {
	const query = `INSERT INTO chat_messages (id, sender, role, message, sent_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, m.ID, m.Sender, m.Role, m.Message, m.Timestamp)
	return err
}

// ListHistory returns all chat messages in insertion order.
func (r *Repository) ListHistory(ctx context.Context) ([]models.ChatMessage, error) {
	const query = `SELECT id, sender, role, message, sent_at FROM chat_messages ORDER BY sent_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.Sender, &m.Role, &m.Message, &m.Timestamp); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
