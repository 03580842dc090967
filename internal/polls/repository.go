package polls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classlive/backend/internal/models"
)

// Repository handles poll persistence. The session coordinator is the only
// writer; option tallies are stored as a JSONB snapshot of the in-memory state.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new poll with its zeroed option tallies.
func (r *Repository) Create(ctx context.Context, p *models.Poll) error {
	options, err := json.Marshal(p.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	const query = `INSERT INTO polls (id, question, options, max_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.pool.Exec(ctx, query, p.ID, p.Question, options, p.MaxTime, p.Status, p.CreatedAt)
	return err
}

// SaveAnswer snapshots the updated option tallies and appends the answer row.
// The answer insert is keyed (poll_id, student_id); a conflict means the row is
// already there from an earlier write and is left untouched.
func (r *Repository) SaveAnswer(ctx context.Context, pollID uuid.UUID, options []models.PollOption, ans models.PollAnswer) error {
	data, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	if _, err := r.pool.Exec(ctx, `UPDATE polls SET options = $2 WHERE id = $1`, pollID, data); err != nil {
		return err
	}
	const query = `INSERT INTO poll_answers (poll_id, student_id, student_name, option_index, answered_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (poll_id, student_id) DO NOTHING`
	_, err = r.pool.Exec(ctx, query, pollID, ans.StudentID, ans.StudentName, ans.OptionIndex, ans.AnsweredAt)
	return err
}

// End marks a poll ended and stamps the end time.
func (r *Repository) End(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	const query = `UPDATE polls SET status = $2, ended_at = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, models.PollStatusEnded, endedAt)
	return err
}

// EndAllActive force-ends every active poll. Used at startup: the in-memory
// current-poll pointer does not survive restarts, so an active row left behind
// by a previous process would otherwise never close.
func (r *Repository) EndAllActive(ctx context.Context, endedAt time.Time) (int64, error) {
	const query = `UPDATE polls SET status = $1, ended_at = $2 WHERE status = $3`
	tag, err := r.pool.Exec(ctx, query, models.PollStatusEnded, endedAt, models.PollStatusActive)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetCurrent returns the most recently created active poll with its answers,
// or nil when no poll is active.
func (r *Repository) GetCurrent(ctx context.Context) (*models.Poll, error) {
	const query = `SELECT id, question, options, max_time, status, created_at, ended_at
		FROM polls WHERE status = $1 ORDER BY created_at DESC LIMIT 1`
	p, err := r.scanPoll(r.pool.QueryRow(ctx, query, models.PollStatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachAnswers(ctx, []*models.Poll{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// ListEnded returns ended polls in reverse chronological order, answers included.
func (r *Repository) ListEnded(ctx context.Context) ([]*models.Poll, error) {
	const query = `SELECT id, question, options, max_time, status, created_at, ended_at
		FROM polls WHERE status = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, models.PollStatusEnded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Poll
	for rows.Next() {
		p, err := r.scanPoll(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachAnswers(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *Repository) scanPoll(row pgx.Row) (*models.Poll, error) {
	var p models.Poll
	var options []byte
	if err := row.Scan(&p.ID, &p.Question, &options, &p.MaxTime, &p.Status, &p.CreatedAt, &p.EndedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(options, &p.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	p.Answers = []models.PollAnswer{}
	return &p, nil
}

func (r *Repository) attachAnswers(ctx context.Context, polls []*models.Poll) error {
	if len(polls) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.Poll, len(polls))
	ids := make([]uuid.UUID, 0, len(polls))
	for _, p := range polls {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	const query = `SELECT poll_id, student_id, student_name, option_index, answered_at
		FROM poll_answers WHERE poll_id = ANY($1) ORDER BY answered_at`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var pollID uuid.UUID
		var a models.PollAnswer
		if err := rows.Scan(&pollID, &a.StudentID, &a.StudentName, &a.OptionIndex, &a.AnsweredAt); err != nil {
			return err
		}
		if p, ok := byID[pollID]; ok {
			p.Answers = append(p.Answers, a)
		}
	}
	return rows.Err()
}
