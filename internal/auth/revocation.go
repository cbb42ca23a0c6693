package auth

import (
	"context"
	"time"
)

// RevokedTokenStore records session tokens invalidated before their natural
// expiry. Sign-out appends to it unconditionally; whether verification
// consults it is an integrator decision (see Verifier).
type RevokedTokenStore interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
