package core

import (
	"context"
	"time"
)

type (
	// TokenStore remembers revoked tokens until they expire.
	TokenStore interface {
		Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
		IsRevoked(ctx context.Context, tokenID string) (bool, error)
	}

	// AttemptLimiter counts failed attempts per key within a window.
	AttemptLimiter interface {
		// Hit records a failed attempt and returns the attempts made in the current window.
		Hit(ctx context.Context, key string, window time.Duration) (int64, error)
		// Attempts returns the attempts made in the current window.
		Attempts(ctx context.Context, key string) (int64, error)
		Reset(ctx context.Context, key string) error
	}
)
