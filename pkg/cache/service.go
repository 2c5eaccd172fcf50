package cache

import "time"

// CacheService is the in-process cache used for OTP codes, idempotent replays and
// read-model caches.
type CacheService interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	// Add stores value only if key is absent or expired. It reports whether it stored.
	Add(key string, value any, ttl time.Duration) bool
	Delete(key string)
	// DeletePrefix drops every key starting with prefix.
	DeletePrefix(prefix string)
	Flush()
}
