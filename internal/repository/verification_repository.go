package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VerificationRepository persists verification-code entries keyed by
// (email, purpose). Expired rows are filtered lazily on read; the hourly
// cleanup job sweeps them from the table.
type VerificationRepository struct {
	pool *pgxpool.Pool
}

// NewVerificationRepository creates a new VerificationRepository.
func NewVerificationRepository(pool *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

// Get retrieves the unexpired entry for an (email, purpose) pair, or
// ErrNotFound when none exists. now is passed in so callers control the
// expiry cutoff.
func (r *VerificationRepository) Get(ctx context.Context, email, purpose string, now time.Time) (*model.VerificationCode, error) {
	var vc model.VerificationCode
	err := r.pool.QueryRow(ctx,
		`SELECT email, purpose, code_hash, created_at, expires_at, attempts, max_attempts, used
		 FROM verification_codes
		 WHERE email = $1 AND purpose = $2 AND expires_at > $3`,
		email, purpose, now,
	).Scan(&vc.Email, &vc.Purpose, &vc.CodeHash, &vc.CreatedAt, &vc.ExpiresAt,
		&vc.Attempts, &vc.MaxAttempts, &vc.Used)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vc, nil
}

// Put upserts an entry, replacing any previous code for the pair.
func (r *VerificationRepository) Put(ctx context.Context, vc *model.VerificationCode) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO verification_codes (email, purpose, code_hash, created_at, expires_at, attempts, max_attempts, used)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (email, purpose) DO UPDATE
		 SET code_hash = EXCLUDED.code_hash, created_at = EXCLUDED.created_at,
		     expires_at = EXCLUDED.expires_at, attempts = EXCLUDED.attempts,
		     max_attempts = EXCLUDED.max_attempts, used = EXCLUDED.used`,
		vc.Email, vc.Purpose, vc.CodeHash, vc.CreatedAt, vc.ExpiresAt,
		vc.Attempts, vc.MaxAttempts, vc.Used)
	return err
}

// Update writes back the mutable verify-path fields (attempts, used).
func (r *VerificationRepository) Update(ctx context.Context, vc *model.VerificationCode) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE verification_codes SET attempts = $3, used = $4
		 WHERE email = $1 AND purpose = $2`,
		vc.Email, vc.Purpose, vc.Attempts, vc.Used)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes all entries past their expiry and reports how many
// rows were swept.
func (r *VerificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM verification_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
