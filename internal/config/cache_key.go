package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key holding a user's active session JTI.
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// CodeCooldownKey returns the cache key caching the raw verification code
// for the reissue cooldown window of an (email, purpose) pair.
func (r *CacheKeyStruct) CodeCooldownKey(email, purpose string) string {
	return fmt.Sprintf("verify:%s:%s:cooldown", purpose, email)
}

// ProgressChannel returns the Redis PubSub channel carrying a user's
// progress totals updates.
func (r *CacheKeyStruct) ProgressChannel(userID int) string {
	return fmt.Sprintf("user:%d:progress", userID)
}

var CacheKey = NewCacheKeyStruct()

// WorkerKeyStruct names the Redis lists consumed by background workers.
type WorkerKeyStruct struct {
	AttemptEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	AttemptEventsQueue: "attempt_events_queue",
}
