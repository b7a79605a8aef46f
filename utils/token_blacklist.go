package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "jwt:revoked:"

// RevocationList remembers signed-out tokens until they would have expired anyway.
// Redis is used when available so revocations are shared between instances;
// otherwise entries live in process memory.
type RevocationList struct {
	rc *redis.Client

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewRevocationList returns a list backed by rc, or by memory when rc is nil.
func NewRevocationList(rc *redis.Client) *RevocationList {
	return &RevocationList{rc: rc, entries: make(map[string]time.Time)}
}

// Revoke stores the token until expiresAt.
func (l *RevocationList) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if l.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return l.rc.Set(ctx, revokedKeyPrefix+token, "1", ttl).Err()
	}
	l.mu.Lock()
	l.entries[token] = expiresAt
	l.mu.Unlock()
	return nil
}

// IsRevoked checks if a token was revoked before natural expiration.
// Redis errors fail open so an outage does not lock every user out.
func (l *RevocationList) IsRevoked(ctx context.Context, token string) bool {
	if l.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := l.rc.Exists(ctx, revokedKeyPrefix+token).Result()
		if err != nil {
			if Sugar != nil {
				Sugar.Warnf("revocation lookup failed err=%v", err)
			}
			return false
		}
		return n > 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	expiresAt, ok := l.entries[token]
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		delete(l.entries, token)
		return false
	}
	return true
}
