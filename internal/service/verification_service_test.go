package service

import (
	"context"
	"testing"
	"time"

	"github.com/hlmaths/practice-backend/internal/config"
	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/hlmaths/practice-backend/internal/repository"
	"github.com/rs/zerolog"
)

// memStore is an in-memory VerificationStore for tests.
type memStore struct {
	entries map[string]*model.VerificationCode
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]*model.VerificationCode)}
}

func (s *memStore) key(email, purpose string) string { return email + "|" + purpose }

func (s *memStore) Get(_ context.Context, email, purpose string, now time.Time) (*model.VerificationCode, error) {
	vc, ok := s.entries[s.key(email, purpose)]
	if !ok || !vc.ExpiresAt.After(now) {
		return nil, repository.ErrNotFound
	}
	cp := *vc
	return &cp, nil
}

func (s *memStore) Put(_ context.Context, vc *model.VerificationCode) error {
	cp := *vc
	s.entries[s.key(vc.Email, vc.Purpose)] = &cp
	return nil
}

func (s *memStore) Update(_ context.Context, vc *model.VerificationCode) error {
	stored, ok := s.entries[s.key(vc.Email, vc.Purpose)]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Attempts = vc.Attempts
	stored.Used = vc.Used
	return nil
}

// memCooldown is an in-memory CooldownCache sharing the test clock.
type memCooldown struct {
	now   func() time.Time
	codes map[string]string
	until map[string]time.Time
}

func newMemCooldown(now func() time.Time) *memCooldown {
	return &memCooldown{now: now, codes: make(map[string]string), until: make(map[string]time.Time)}
}

func (c *memCooldown) GetCode(_ context.Context, email, purpose string) (string, error) {
	k := email + "|" + purpose
	if deadline, ok := c.until[k]; !ok || !deadline.After(c.now()) {
		return "", nil
	}
	return c.codes[k], nil
}

func (c *memCooldown) SetCode(_ context.Context, email, purpose, code string, ttl time.Duration) error {
	k := email + "|" + purpose
	c.codes[k] = code
	c.until[k] = c.now().Add(ttl)
	return nil
}

// captureMailer records the codes it was asked to deliver.
type captureMailer struct {
	sent []string
}

func (m *captureMailer) SendVerificationCode(_ context.Context, _, _, code string) error {
	m.sent = append(m.sent, code)
	return nil
}

func (m *captureMailer) last() string {
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1]
}

type verifyFixture struct {
	svc    *VerificationService
	store  *memStore
	mailer *captureMailer
	now    time.Time
}

func newVerifyFixture(t *testing.T) *verifyFixture {
	t.Helper()

	f := &verifyFixture{
		store:  newMemStore(),
		mailer: &captureMailer{},
		now:    time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}

	cfg := &config.Config{
		VerificationSecret: "test-secret",
		CodeExpiry:         15 * time.Minute,
		CodeCooldown:       90 * time.Second,
		CodeMaxAttempts:    5,
	}

	clock := func() time.Time { return f.now }
	f.svc = NewVerificationService(cfg, f.store, newMemCooldown(clock), f.mailer, zerolog.Nop())
	f.svc.now = clock
	return f
}

func (f *verifyFixture) advance(d time.Duration) { f.now = f.now.Add(d) }

const (
	testAddr    = "user@example.com"
	testPurpose = model.PurposeEmailVerification
)

func TestIssueAndVerify(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	if err := f.svc.Issue(ctx, testAddr, testPurpose); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	code := f.mailer.last()
	if len(code) != 6 {
		t.Fatalf("issued code %q, want 6 digits", code)
	}

	ok, err := f.svc.Verify(ctx, testAddr, testPurpose, code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("Verify with correct code = false")
	}

	// Single use: the same code never verifies twice.
	ok, _ = f.svc.Verify(ctx, testAddr, testPurpose, code)
	if ok {
		t.Error("Verify succeeded on an already-consumed code")
	}
}

func TestVerifyWrongCode(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	if err := f.svc.Issue(ctx, testAddr, testPurpose); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	code := f.mailer.last()

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	ok, err := f.svc.Verify(ctx, testAddr, testPurpose, wrong)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("Verify with wrong code = true")
	}

	// A wrong guess must not consume the entry.
	ok, _ = f.svc.Verify(ctx, testAddr, testPurpose, code)
	if !ok {
		t.Error("Verify with correct code = false after one wrong guess")
	}
}

func TestLockoutAfterMaxAttempts(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	if err := f.svc.Issue(ctx, testAddr, testPurpose); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	code := f.mailer.last()

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < 5; i++ {
		if ok, _ := f.svc.Verify(ctx, testAddr, testPurpose, wrong); ok {
			t.Fatalf("wrong guess %d verified", i+1)
		}
	}

	// Sixth call with the CORRECT code: still false, the entry is locked.
	ok, err := f.svc.Verify(ctx, testAddr, testPurpose, code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("correct code verified after lockout")
	}

	// Scenario tail: an immediate reissue within the cooldown returns the
	// same raw code as before.
	if err := f.svc.Issue(ctx, testAddr, testPurpose); err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if got := f.mailer.last(); got != code {
		t.Errorf("reissue within cooldown sent %q, want original %q", got, code)
	}
}

func TestCooldownReissuesSameCodeWithoutExtendingExpiry(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	if err := f.svc.Issue(ctx, testAddr, testPurpose); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	first := f.mailer.last()
	firstExpiry := f.store.entries[f.store.key(testAddr, testPurpose)].ExpiresAt

	f.advance(30 * time.Second)
	if err := f.svc.Issue(ctx, testAddr, testPurpose); err != nil {
		t.Fatalf("reissue: %v", err)
	}

	if got := f.mailer.last(); got != first {
		t.Errorf("reissue within cooldown sent %q, want %q", got, first)
	}
	if got := f.store.entries[f.store.key(testAddr, testPurpose)].ExpiresAt; !got.Equal(firstExpiry) {
		t.Errorf("cooldown reissue moved expiry from %v to %v", firstExpiry, got)
	}

	// Past the cooldown a brand-new code is minted and the attempts
	// counter starts over.
	f.advance(2 * time.Minute)
	if err := f.svc.Issue(ctx, testAddr, testPurpose); err != nil {
		t.Fatalf("fresh issue: %v", err)
	}
	fresh := f.mailer.last()
	if ok, _ := f.svc.Verify(ctx, testAddr, testPurpose, fresh); !ok {
		t.Error("freshly minted code failed to verify")
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	if err := f.svc.Issue(ctx, testAddr, testPurpose); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	code := f.mailer.last()

	f.advance(16 * time.Minute)

	ok, err := f.svc.Verify(ctx, testAddr, testPurpose, code)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("expired code verified")
	}
}

func TestVerifyUnknownPairIsUniformFalse(t *testing.T) {
	f := newVerifyFixture(t)

	ok, err := f.svc.Verify(context.Background(), "nobody@example.com", testPurpose, "123456")
	if err != nil {
		t.Fatalf("Verify on missing entry returned error %v, want uniform false", err)
	}
	if ok {
		t.Error("Verify on missing entry = true")
	}
}

func TestVerifyLegacyUnhashedEntry(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	// Entries written before hashing stored the raw code directly.
	f.store.Put(ctx, &model.VerificationCode{
		Email:       testAddr,
		Purpose:     testPurpose,
		CodeHash:    "424242",
		CreatedAt:   f.now,
		ExpiresAt:   f.now.Add(10 * time.Minute),
		MaxAttempts: 5,
	})

	ok, err := f.svc.Verify(ctx, testAddr, testPurpose, "424242")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("legacy unhashed entry failed to verify")
	}
}

func TestPurposesAreIndependent(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	if err := f.svc.Issue(ctx, testAddr, model.PurposeEmailVerification); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	verifyCode := f.mailer.last()

	if err := f.svc.Issue(ctx, testAddr, model.PurposePasswordReset); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	resetCode := f.mailer.last()

	// A code only works for the purpose it was issued under. With distinct
	// codes that is trivially true; when the random codes collide the keyed
	// hash still separates the purposes.
	if verifyCode != resetCode {
		if ok, _ := f.svc.Verify(ctx, testAddr, model.PurposePasswordReset, verifyCode); ok {
			t.Error("email_verification code verified under password_reset")
		}
	}
	if ok, _ := f.svc.Verify(ctx, testAddr, model.PurposePasswordReset, resetCode); !ok {
		t.Error("password_reset code failed under its own purpose")
	}
}
