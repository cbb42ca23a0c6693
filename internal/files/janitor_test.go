package files

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/thundershare/backend/internal/models"
)

type recordingTokenStore struct {
	tokens map[string]time.Time
}

func (s *recordingTokenStore) Add(_ context.Context, token string, expiresAt time.Time) error {
	s.tokens[token] = expiresAt
	return nil
}

func (s *recordingTokenStore) Contains(_ context.Context, token string) (bool, error) {
	_, ok := s.tokens[token]
	return ok, nil
}

func (s *recordingTokenStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var removed int64
	for token, expiresAt := range s.tokens {
		if expiresAt.Before(now) {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed, nil
}

func TestJanitorSweepPurgesExpired(t *testing.T) {
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	shares := newInMemoryShareStore()
	shares.byID["stale"] = models.FileShare{ID: "stale", ExpiresAt: now.Add(-time.Hour)}
	shares.byID["live"] = models.FileShare{ID: "live", ExpiresAt: now.Add(time.Hour)}

	tokens := &recordingTokenStore{tokens: map[string]time.Time{
		"stale-token": now.Add(-time.Minute),
		"live-token":  now.Add(time.Minute),
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	j := NewJanitor(shares, tokens, time.Hour, logger)
	j.NowFunc = func() time.Time { return now }
	defer j.Shutdown(context.Background())

	j.sweep()

	if _, ok := shares.byID["stale"]; ok {
		t.Fatal("expired share survived the sweep")
	}
	if _, ok := shares.byID["live"]; !ok {
		t.Fatal("live share was purged")
	}
	if _, ok := tokens.tokens["stale-token"]; ok {
		t.Fatal("expired token survived the sweep")
	}
	if _, ok := tokens.tokens["live-token"]; !ok {
		t.Fatal("live token was purged")
	}
}

func TestJanitorShutdownStopsLoop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	j := NewJanitor(newInMemoryShareStore(), nil, time.Millisecond, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := j.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	// A second shutdown is a no-op.
	if err := j.Shutdown(ctx); err != nil {
		t.Fatalf("repeat shutdown: %v", err)
	}
}
