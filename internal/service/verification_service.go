package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/hlmaths/practice-backend/internal/config"
	"github.com/hlmaths/practice-backend/internal/email"
	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/hlmaths/practice-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// VerificationStore is the persistence surface VerificationService needs.
// *repository.VerificationRepository satisfies it.
type VerificationStore interface {
	Get(ctx context.Context, email, purpose string, now time.Time) (*model.VerificationCode, error)
	Put(ctx context.Context, vc *model.VerificationCode) error
	Update(ctx context.Context, vc *model.VerificationCode) error
}

// CooldownCache holds the raw code for the reissue cooldown window, so a
// rapid resubmission resends the same code instead of minting (and
// emailing) a fresh one.
type CooldownCache interface {
	GetCode(ctx context.Context, email, purpose string) (string, error)
	SetCode(ctx context.Context, email, purpose, code string, ttl time.Duration) error
}

// VerificationService issues and checks short-lived single-use numeric
// codes bound to an (email, purpose) pair.
//
// Verify deliberately returns an undifferentiated false for wrong,
// expired, locked and unknown codes alike: callers must not be able to
// probe which addresses have codes outstanding.
type VerificationService struct {
	store    VerificationStore
	cooldown CooldownCache
	mailer   email.Mailer
	log      zerolog.Logger

	secret      []byte
	ttl         time.Duration
	cooldownTTL time.Duration
	maxAttempts int

	now func() time.Time
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(
	cfg *config.Config,
	store VerificationStore,
	cooldown CooldownCache,
	mailer email.Mailer,
	log zerolog.Logger,
) *VerificationService {
	return &VerificationService{
		store:       store,
		cooldown:    cooldown,
		mailer:      mailer,
		log:         log.With().Str("component", "verification_service").Logger(),
		secret:      []byte(cfg.VerificationSecret),
		ttl:         cfg.CodeExpiry,
		cooldownTTL: cfg.CodeCooldown,
		maxAttempts: cfg.CodeMaxAttempts,
		now:         time.Now,
	}
}

// Issue generates a 6-digit code for the pair, persists its keyed hash and
// emails the raw code. Within the cooldown window the previously issued
// raw code is resent as-is; its expiry is not extended, so the original
// 15-minute clock keeps running across reissues.
func (s *VerificationService) Issue(ctx context.Context, addr, purpose string) error {
	if cached, err := s.cooldown.GetCode(ctx, addr, purpose); err == nil && cached != "" {
		s.log.Debug().Str("purpose", purpose).Msg("Reissuing code within cooldown window")
		return s.mailer.SendVerificationCode(ctx, addr, purpose, cached)
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	now := s.now().UTC()
	entry := &model.VerificationCode{
		Email:       addr,
		Purpose:     purpose,
		CodeHash:    s.hash(purpose, code),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
		Attempts:    0,
		MaxAttempts: s.maxAttempts,
		Used:        false,
	}

	if err := s.store.Put(ctx, entry); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	if err := s.cooldown.SetCode(ctx, addr, purpose, code, s.cooldownTTL); err != nil {
		// Losing the cooldown entry only means a fresh code on the next
		// request; not worth failing the issue over.
		s.log.Warn().Err(err).Msg("Cooldown cache write failed")
	}

	return s.mailer.SendVerificationCode(ctx, addr, purpose, code)
}

// Verify checks a candidate code. Success consumes the entry; a wrong
// guess burns one of the bounded attempts, and exhausting them locks the
// entry for good even if the correct code arrives later. The error return
// carries store I/O failures only, never the reason verification failed.
func (s *VerificationService) Verify(ctx context.Context, addr, purpose, code string) (bool, error) {
	entry, err := s.store.Get(ctx, addr, purpose, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load code: %w", err)
	}

	if entry.Used || !entry.ExpiresAt.After(s.now().UTC()) {
		return false, nil
	}

	if s.matches(entry, purpose, code) {
		entry.Used = true
		if err := s.store.Update(ctx, entry); err != nil {
			return false, fmt.Errorf("consume code: %w", err)
		}
		return true, nil
	}

	entry.Attempts++
	if entry.Attempts >= entry.MaxAttempts {
		// Locked: the entry stays invalid permanently.
		entry.Used = true
		s.log.Info().Str("purpose", purpose).Msg("Verification code locked after too many attempts")
	}
	if err := s.store.Update(ctx, entry); err != nil {
		return false, fmt.Errorf("record attempt: %w", err)
	}
	return false, nil
}

// matches compares the candidate against the stored keyed hash, falling
// back to a direct comparison for legacy entries persisted unhashed.
func (s *VerificationService) matches(entry *model.VerificationCode, purpose, code string) bool {
	candidate := s.hash(purpose, code)
	if hmac.Equal([]byte(candidate), []byte(entry.CodeHash)) {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(entry.CodeHash), []byte(code)) == 1
}

func (s *VerificationService) hash(purpose, code string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(purpose + ":" + code))
	return hex.EncodeToString(mac.Sum(nil))
}

// generateCode returns a uniformly random 6-digit code, zero padded.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// redisCooldownCache implements CooldownCache on Redis, letting key TTL
// expire the window.
type redisCooldownCache struct {
	rdb *redis.Client
}

// NewRedisCooldownCache creates a Redis-backed CooldownCache.
func NewRedisCooldownCache(rdb *redis.Client) CooldownCache {
	return &redisCooldownCache{rdb: rdb}
}

func (c *redisCooldownCache) GetCode(ctx context.Context, addr, purpose string) (string, error) {
	code, err := c.rdb.Get(ctx, config.CacheKey.CodeCooldownKey(addr, purpose)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return code, err
}

func (c *redisCooldownCache) SetCode(ctx context.Context, addr, purpose, code string, ttl time.Duration) error {
	return c.rdb.Set(ctx, config.CacheKey.CodeCooldownKey(addr, purpose), code, ttl).Err()
}
