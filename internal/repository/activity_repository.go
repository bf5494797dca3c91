package repository

import (
	"context"
	"time"

	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityRepository stores per-day submission aggregates, maintained
// asynchronously by the progress worker.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// ListByUser retrieves a user's daily aggregates since the given day,
// most recent first.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID int, since time.Time) ([]model.DailyActivity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT day, attempts, total_seconds FROM daily_activity
		 WHERE user_id = $1 AND day >= $2 ORDER BY day DESC`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activity []model.DailyActivity
	for rows.Next() {
		var a model.DailyActivity
		if err := rows.Scan(&a.Day, &a.Attempts, &a.TotalSeconds); err != nil {
			return nil, err
		}
		activity = append(activity, a)
	}
	return activity, rows.Err()
}
