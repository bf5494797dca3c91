package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/hlmaths/practice-backend/internal/repository"
	"github.com/rs/zerolog"
)

// CleanupWorker sweeps expired verification codes from the store once per
// hour. Expired entries are already invisible to reads (they are filtered
// lazily); the sweep just keeps the table from growing without bound.
type CleanupWorker struct {
	store     *repository.VerificationRepository
	scheduler *gocron.Scheduler
	log       zerolog.Logger
}

// NewCleanupWorker creates a new CleanupWorker.
func NewCleanupWorker(store *repository.VerificationRepository, log zerolog.Logger) *CleanupWorker {
	return &CleanupWorker{
		store:     store,
		scheduler: gocron.NewScheduler(time.UTC),
		log:       log.With().Str("component", "cleanup_worker").Logger(),
	}
}

// Start schedules the hourly sweep and returns immediately.
func (w *CleanupWorker) Start() error {
	// SingletonMode prevents a slow sweep from overlapping the next run.
	if _, err := w.scheduler.Every(1).Hour().SingletonMode().Do(w.sweep); err != nil {
		return err
	}
	w.scheduler.StartAsync()
	w.log.Info().Msg("CleanupWorker started")
	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish.
func (w *CleanupWorker) Stop() {
	w.scheduler.Stop()
}

func (w *CleanupWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	swept, err := w.store.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		w.log.Error().Err(err).Msg("Verification code sweep failed")
		return
	}
	if swept > 0 {
		w.log.Info().Int64("swept", swept).Msg("Expired verification codes removed")
	}
}
