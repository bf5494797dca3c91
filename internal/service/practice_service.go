package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hlmaths/practice-backend/internal/config"
	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/hlmaths/practice-backend/internal/progress"
	"github.com/hlmaths/practice-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrQuestionUnknown is returned when a submission references a question
// that is not in the bank.
var ErrQuestionUnknown = errors.New("unknown question")

// SubmitResult is returned to the caller after a submission: the attempt
// as recorded plus the full serialized tree snapshot for progress-bar
// rendering.
type SubmitResult struct {
	Attempt model.Attempt   `json:"attempt"`
	Created bool            `json:"created"`
	Tree    json.RawMessage `json:"tree"`
	Totals  progress.Totals `json:"totals"`
}

// attemptEvent is the payload pushed onto the worker queue after each
// successful submission.
type attemptEvent struct {
	UserID           int             `json:"user_id"`
	QuestionID       string          `json:"question_id"`
	TimeTakenSeconds int             `json:"time_taken_seconds"`
	Day              string          `json:"day"`
	Totals           progress.Totals `json:"totals"`
}

// PracticeService owns attempt submission and progress reads. All tree
// mutations run in a transaction holding the user row lock, so concurrent
// submissions for the same user serialize instead of losing updates.
type PracticeService struct {
	pool         *pgxpool.Pool
	rdb          *redis.Client
	attemptRepo  *repository.AttemptRepository
	questionRepo *repository.QuestionRepository
	pm           progress.PaperMap
	log          zerolog.Logger
}

// NewPracticeService creates a new PracticeService.
func NewPracticeService(
	pool *pgxpool.Pool,
	rdb *redis.Client,
	attemptRepo *repository.AttemptRepository,
	questionRepo *repository.QuestionRepository,
	pm progress.PaperMap,
	log zerolog.Logger,
) *PracticeService {
	return &PracticeService{
		pool:         pool,
		rdb:          rdb,
		attemptRepo:  attemptRepo,
		questionRepo: questionRepo,
		pm:           pm,
		log:          log.With().Str("component", "practice_service").Logger(),
	}
}

// SubmitAttempt records a practice submission: it loads (or backfills) the
// user's progress tree under the row lock, applies the add-or-update,
// upserts the flat attempt log and writes the snapshot back, all in one
// transaction. The attempt event is queued for the progress worker after
// commit.
func (s *PracticeService) SubmitAttempt(ctx context.Context, userID int, req model.SubmitAttemptRequest) (*SubmitResult, error) {
	if _, err := s.questionRepo.GetByID(ctx, req.QuestionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestionUnknown
		}
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tree, err := s.lockAndLoadTree(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	meta := progress.Meta{
		TimeTakenSeconds: req.TimeTakenSeconds,
		Notes:            req.Notes,
	}
	created := tree.AddAttempt(req.QuestionID, meta)

	attempt, err := s.upsertAttempt(ctx, tx, userID, req)
	if err != nil {
		return nil, err
	}

	snapshot, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("marshal tree: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET progress_tree = $2, updated_at = now() WHERE id = $1`,
		userID, snapshot); err != nil {
		return nil, fmt.Errorf("save tree: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.enqueueEvent(ctx, userID, attempt, tree.Totals())

	return &SubmitResult{
		Attempt: attempt,
		Created: created,
		Tree:    snapshot,
		Totals:  tree.Totals(),
	}, nil
}

// GetProgress returns the user's serialized tree snapshot, backfilling it
// from the flat attempt log on first read for accounts that predate the
// tree.
func (s *PracticeService) GetProgress(ctx context.Context, userID int) (json.RawMessage, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tree, err := s.lockAndLoadTree(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	snapshot, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("marshal tree: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET progress_tree = $2 WHERE id = $1 AND progress_tree IS NULL`,
		userID, snapshot); err != nil {
		return nil, fmt.Errorf("save tree: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return snapshot, nil
}

// ListAttempts returns the flattened projection of the tree, most recently
// completed first.
func (s *PracticeService) ListAttempts(ctx context.Context, userID int) ([]progress.Attempt, error) {
	raw, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return progress.Restore(raw, s.pm).ToAttempts(), nil
}

// lockAndLoadTree selects the user's snapshot FOR UPDATE and restores it.
// A NULL snapshot triggers the one-time backfill from the attempt log.
func (s *PracticeService) lockAndLoadTree(ctx context.Context, tx pgx.Tx, userID int) (*progress.Tree, error) {
	var raw []byte
	err := tx.QueryRow(ctx,
		`SELECT progress_tree FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}

	if raw == nil {
		attempts, err := s.attemptRepo.ListByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("backfill: %w", err)
		}
		if len(attempts) > 0 {
			s.log.Info().Int("user_id", userID).Int("attempts", len(attempts)).
				Msg("Backfilling progress tree from attempt log")
		}
		return progress.FromAttempts(toProgressAttempts(attempts), s.pm), nil
	}

	return progress.Restore(raw, s.pm), nil
}

func (s *PracticeService) upsertAttempt(ctx context.Context, tx pgx.Tx, userID int, req model.SubmitAttemptRequest) (model.Attempt, error) {
	var a model.Attempt
	a.UserID = userID

	err := tx.QueryRow(ctx,
		`INSERT INTO attempts (user_id, question_id, completed_at, last_updated_at, time_taken_seconds, notes)
		 VALUES ($1, $2, now(), now(), $3, $4)
		 ON CONFLICT (user_id, question_id) DO UPDATE
		 SET last_updated_at = now(),
		     time_taken_seconds = COALESCE($3, attempts.time_taken_seconds),
		     notes = COALESCE($4, attempts.notes)
		 RETURNING question_id, completed_at, last_updated_at, COALESCE(time_taken_seconds, 0), COALESCE(notes, '')`,
		userID, req.QuestionID, req.TimeTakenSeconds, req.Notes,
	).Scan(&a.QuestionID, &a.CompletedAt, &a.LastUpdatedAt, &a.TimeTakenSeconds, &a.Notes)
	if err != nil {
		return a, fmt.Errorf("upsert attempt: %w", err)
	}
	return a, nil
}

// enqueueEvent pushes the attempt event for the progress worker. Failures
// are logged and dropped; the submission itself already committed.
func (s *PracticeService) enqueueEvent(ctx context.Context, userID int, attempt model.Attempt, totals progress.Totals) {
	payload, err := json.Marshal(attemptEvent{
		UserID:           userID,
		QuestionID:       attempt.QuestionID,
		TimeTakenSeconds: attempt.TimeTakenSeconds,
		Day:              time.Now().UTC().Format("2006-01-02"),
		Totals:           totals,
	})
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.AttemptEventsQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to enqueue attempt event")
	}
}

func toProgressAttempts(attempts []model.Attempt) []progress.Attempt {
	out := make([]progress.Attempt, len(attempts))
	for i, a := range attempts {
		out[i] = progress.Attempt{
			QuestionID:       a.QuestionID,
			CompletedAt:      a.CompletedAt,
			LastUpdatedAt:    a.LastUpdatedAt,
			TimeTakenSeconds: a.TimeTakenSeconds,
			Notes:            a.Notes,
		}
	}
	return out
}
