package repository

import (
	"context"

	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository handles the flat per-user attempt log. The log is the
// legacy source of truth the progress tree is backfilled from; the tree
// stays authoritative for reads once built.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// ListByUser retrieves all attempts for a user, oldest first, so replaying
// them through the tree preserves first-seen completion times.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, completed_at, last_updated_at, COALESCE(time_taken_seconds, 0), COALESCE(notes, '')
		 FROM attempts WHERE user_id = $1 ORDER BY completed_at, question_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a := model.Attempt{UserID: userID}
		if err := rows.Scan(&a.QuestionID, &a.CompletedAt, &a.LastUpdatedAt, &a.TimeTakenSeconds, &a.Notes); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// CountByUser returns the number of logged attempts for a user.
func (r *AttemptRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attempts WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}
