package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hlmaths/practice-backend/internal/config"
	"github.com/hlmaths/practice-backend/internal/progress"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ActivityBatchSize    = 50
	ActivityBatchTimeout = 2 * time.Second
	ActivityPollTimeout  = 1 * time.Second
)

// ProgressWorker drains the attempt-event queue: each event is published
// to the submitter's pubsub channel immediately (for live progress
// streams) and the daily activity aggregates are flushed to Postgres in
// batches.
type ProgressWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewProgressWorker creates a new ProgressWorker.
func NewProgressWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ProgressWorker {
	return &ProgressWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "progress_worker").Logger(),
	}
}

type attemptEvent struct {
	UserID           int             `json:"user_id"`
	QuestionID       string          `json:"question_id"`
	TimeTakenSeconds int             `json:"time_taken_seconds"`
	Day              string          `json:"day"`
	Totals           progress.Totals `json:"totals"`
}

// Start runs the worker loop until ctx is cancelled, flushing any
// remaining batch on shutdown.
func (w *ProgressWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProgressWorker started")

	batch := make([]*attemptEvent, 0, ActivityBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ActivityBatchSize || time.Since(lastFlush) >= ActivityBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ActivityPollTimeout, config.WorkerKey.AttemptEventsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var ev attemptEvent
			if err := json.Unmarshal([]byte(item[1]), &ev); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			w.publish(ctx, &ev)
			batch = append(batch, &ev)
		}
	}
}

// publish pushes totals to the user's pubsub channel so open progress
// streams update without polling. Best-effort.
func (w *ProgressWorker) publish(ctx context.Context, ev *attemptEvent) {
	payload, err := json.Marshal(map[string]interface{}{
		"user_id":     ev.UserID,
		"question_id": ev.QuestionID,
		"totals":      ev.Totals,
	})
	if err != nil {
		return
	}
	if err := w.rdb.Publish(ctx, config.CacheKey.ProgressChannel(ev.UserID), payload).Err(); err != nil {
		w.log.Warn().Err(err).Msg("Publish failed")
	}
}

func (w *ProgressWorker) flushSafe(ctx context.Context, batch []*attemptEvent) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpsertActivity(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("Bulk activity upsert failed, using fallback")

		for _, ev := range batch {
			if err := w.upsertSingle(ctx, ev); err != nil {
				w.log.Error().Err(err).Msg("upsertSingle failed — requeueing")
				raw, _ := json.Marshal(ev)
				w.rdb.RPush(ctx, config.WorkerKey.AttemptEventsQueue, raw)
			}
		}
	}
}

// bulkUpsertActivity folds the batch into daily_activity with one UNNEST
// statement. Events for the same (user, day) are pre-aggregated in memory
// so the upsert touches each row once.
func (w *ProgressWorker) bulkUpsertActivity(ctx context.Context, batch []*attemptEvent) error {
	type key struct {
		userID int
		day    string
	}
	agg := make(map[key]*attemptEvent)
	order := make([]key, 0, len(batch))

	for _, ev := range batch {
		k := key{ev.UserID, ev.Day}
		if existing, ok := agg[k]; ok {
			existing.TimeTakenSeconds += ev.TimeTakenSeconds
			continue
		}
		cp := *ev
		agg[k] = &cp
		order = append(order, k)
	}

	userIDs := make([]int, 0, len(order))
	days := make([]string, 0, len(order))
	counts := make([]int, 0, len(order))
	seconds := make([]int, 0, len(order))

	countByKey := make(map[key]int)
	for _, ev := range batch {
		countByKey[key{ev.UserID, ev.Day}]++
	}

	for _, k := range order {
		userIDs = append(userIDs, k.userID)
		days = append(days, k.day)
		counts = append(counts, countByKey[k])
		seconds = append(seconds, agg[k].TimeTakenSeconds)
	}

	_, err := w.pool.Exec(ctx,
		`INSERT INTO daily_activity (user_id, day, attempts, total_seconds)
		 SELECT u, d::date, c, s
		 FROM UNNEST($1::int[], $2::text[], $3::int[], $4::int[]) AS t(u, d, c, s)
		 ON CONFLICT (user_id, day) DO UPDATE
		 SET attempts = daily_activity.attempts + EXCLUDED.attempts,
		     total_seconds = daily_activity.total_seconds + EXCLUDED.total_seconds`,
		userIDs, days, counts, seconds)
	return err
}

func (w *ProgressWorker) upsertSingle(ctx context.Context, ev *attemptEvent) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO daily_activity (user_id, day, attempts, total_seconds)
		 VALUES ($1, $2::date, 1, $3)
		 ON CONFLICT (user_id, day) DO UPDATE
		 SET attempts = daily_activity.attempts + 1,
		     total_seconds = daily_activity.total_seconds + EXCLUDED.total_seconds`,
		ev.UserID, ev.Day, ev.TimeTakenSeconds)
	return err
}
