// Package auth implements the session token lifecycle: issuing and parsing
// signed bearer tokens, and recording tokens invalidated by sign-out.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken indicates a token whose signature or payload could not be verified.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenEncoding indicates the codec failed to sign a token.
	ErrTokenEncoding = errors.New("token encoding failed")
	// ErrTokenExpired indicates a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked indicates a token that was invalidated by an explicit sign-out.
	ErrTokenRevoked = errors.New("token revoked")
)

// DefaultTTL is the session lifetime applied when no override is configured.
const DefaultTTL = 10 * time.Minute

// Identity is the decoded assertion carried by a session token.
type Identity struct {
	CustomerID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Codec creates and consumes signed session tokens. Tokens are stateless and
// self-verifying; no server-side session table is consulted here.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec constructs a token codec. The signing secret is required; a
// missing secret is a configuration error surfaced at startup rather than on
// the first request.
func NewCodec(secret []byte, ttl time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: secret, ttl: ttl}, nil
}

// TTL reports the configured session lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue constructs an identity for the customer expiring at issuedAt + TTL.
// Timestamps are truncated to whole seconds to match the wire precision of
// the encoded claims.
func (c *Codec) Issue(customerID string, issuedAt time.Time) Identity {
	iat := issuedAt.UTC().Truncate(time.Second)
	return Identity{
		CustomerID: customerID,
		IssuedAt:   iat,
		ExpiresAt:  iat.Add(c.ttl),
	}
}

// Encode serializes the identity into a compact signed token string.
func (c *Codec) Encode(identity Identity) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   identity.CustomerID,
		IssuedAt:  jwt.NewNumericDate(identity.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(identity.ExpiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenEncoding, err)
	}

	return signed, nil
}

// Decode verifies the signature and claim shape of a serialized token.
// Expiry is a value carried inside the token; whether it still holds is the
// caller's decision (see Verifier), so freshness is deliberately not checked
// here.
func (c *Codec) Decode(token string) (Identity, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		CustomerID: claims.Subject,
		IssuedAt:   claims.IssuedAt.Time.UTC(),
		ExpiresAt:  claims.ExpiresAt.Time.UTC(),
	}, nil
}
