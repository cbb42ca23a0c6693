package auth

import (
	"context"
	"fmt"
	"time"
)

// Verifier resolves serialized tokens into identities. It applies the
// freshness check the codec leaves to callers and, optionally, rejects tokens
// present in the sign-out ledger.
type Verifier struct {
	codec   *Codec
	revoked RevokedTokenStore
	enforce bool
	NowFunc func() time.Time
}

// NewVerifier builds a verifier. When enforceSignOut is true every verified
// token is checked against the revoked-token store; when false the ledger is
// never consulted and sign-out only takes effect at natural expiry.
func NewVerifier(codec *Codec, revoked RevokedTokenStore, enforceSignOut bool) *Verifier {
	return &Verifier{codec: codec, revoked: revoked, enforce: enforceSignOut}
}

// Verify decodes the token and rejects stale or revoked sessions.
func (v *Verifier) Verify(ctx context.Context, token string) (Identity, error) {
	identity, err := v.codec.Decode(token)
	if err != nil {
		return Identity{}, err
	}

	if identity.ExpiresAt.Before(v.now()) {
		return Identity{}, ErrTokenExpired
	}

	if v.enforce && v.revoked != nil {
		revoked, err := v.revoked.Contains(ctx, token)
		if err != nil {
			return Identity{}, fmt.Errorf("check revoked token: %w", err)
		}
		if revoked {
			return Identity{}, ErrTokenRevoked
		}
	}

	return identity, nil
}

func (v *Verifier) now() time.Time {
	if v.NowFunc != nil {
		return v.NowFunc()
	}
	return time.Now().UTC()
}
