package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCodecRoundTrip(t *testing.T) {
	codec, err := NewCodec([]byte("test-secret"), 10*time.Minute)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	issuedAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	identity := codec.Issue("customer-123", issuedAt)

	if identity.ExpiresAt != issuedAt.Add(10*time.Minute) {
		t.Fatalf("expected expiry issuedAt+10m, got %v", identity.ExpiresAt)
	}

	token, err := codec.Encode(identity)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.CustomerID != identity.CustomerID {
		t.Fatalf("subject mismatch: got %q want %q", decoded.CustomerID, identity.CustomerID)
	}
	if !decoded.IssuedAt.Equal(identity.IssuedAt) || !decoded.ExpiresAt.Equal(identity.ExpiresAt) {
		t.Fatalf("timestamp mismatch: got %+v want %+v", decoded, identity)
	}
}

func TestCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec(nil, time.Minute); err == nil {
		t.Fatal("expected error for empty signing secret")
	}
}

func TestCodecDefaultTTL(t *testing.T) {
	codec, err := NewCodec([]byte("k"), 0)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	if codec.TTL() != DefaultTTL {
		t.Fatalf("expected default ttl %v, got %v", DefaultTTL, codec.TTL())
	}
}

func TestCodecDecodeWrongSecret(t *testing.T) {
	right, _ := NewCodec([]byte("right-secret"), time.Minute)
	wrong, _ := NewCodec([]byte("wrong-secret"), time.Minute)

	token, err := right.Encode(right.Issue("customer-1", time.Now()))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := wrong.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCodecDecodeMalformed(t *testing.T) {
	codec, _ := NewCodec([]byte("k"), time.Minute)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := codec.Decode(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}

func TestCodecDecodeDoesNotCheckFreshness(t *testing.T) {
	codec, _ := NewCodec([]byte("k"), time.Minute)

	stale := codec.Issue("customer-1", time.Now().Add(-time.Hour))
	token, err := codec.Encode(stale)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("expected decode to accept expired-but-valid token, got %v", err)
	}
	if decoded.CustomerID != "customer-1" {
		t.Fatalf("unexpected subject %q", decoded.CustomerID)
	}
}

type fakeRevokedStore struct {
	tokens map[string]time.Time
	err    error
}

func newFakeRevokedStore() *fakeRevokedStore {
	return &fakeRevokedStore{tokens: make(map[string]time.Time)}
}

func (s *fakeRevokedStore) Add(_ context.Context, token string, expiresAt time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.tokens[token] = expiresAt
	return nil
}

func (s *fakeRevokedStore) Contains(_ context.Context, token string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.tokens[token]
	return ok, nil
}

func (s *fakeRevokedStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	var removed int64
	for token, expiresAt := range s.tokens {
		if expiresAt.Before(now) {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed, nil
}

func TestVerifierRejectsExpired(t *testing.T) {
	codec, _ := NewCodec([]byte("k"), time.Minute)
	verifier := NewVerifier(codec, nil, false)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	verifier.NowFunc = func() time.Time { return now }

	token, err := codec.Encode(codec.Issue("customer-1", now.Add(-2*time.Minute)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifierEnforcesRevocation(t *testing.T) {
	codec, _ := NewCodec([]byte("k"), time.Minute)
	revoked := newFakeRevokedStore()

	identity := codec.Issue("customer-1", time.Now())
	token, err := codec.Encode(identity)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := revoked.Add(context.Background(), token, identity.ExpiresAt); err != nil {
		t.Fatalf("add revoked token: %v", err)
	}

	enforcing := NewVerifier(codec, revoked, true)
	if _, err := enforcing.Verify(context.Background(), token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}

	lenient := NewVerifier(codec, revoked, false)
	if _, err := lenient.Verify(context.Background(), token); err != nil {
		t.Fatalf("expected lenient verifier to accept revoked token, got %v", err)
	}
}

func TestVerifierAcceptsFreshToken(t *testing.T) {
	codec, _ := NewCodec([]byte("k"), time.Minute)
	verifier := NewVerifier(codec, newFakeRevokedStore(), true)

	token, err := codec.Encode(codec.Issue("customer-42", time.Now()))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	identity, err := verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.CustomerID != "customer-42" {
		t.Fatalf("unexpected subject %q", identity.CustomerID)
	}
}
