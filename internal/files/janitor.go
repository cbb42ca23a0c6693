package files

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thundershare/backend/internal/auth"
)

// ExpiredShareStore removes sharing links whose expiry has passed.
type ExpiredShareStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Janitor periodically purges expired sharing links and used tokens. Expiry
// is always evaluated at access time regardless; the janitor only keeps the
// tables from growing without bound.
type Janitor struct {
	shares   ExpiredShareStore
	tokens   auth.RevokedTokenStore
	interval time.Duration
	logger   *slog.Logger
	NowFunc  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewJanitor starts the background sweep loop.
func NewJanitor(shares ExpiredShareStore, tokens auth.RevokedTokenStore, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	j := &Janitor{
		shares:   shares,
		tokens:   tokens,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go j.run()

	return j
}

// Shutdown stops the sweep loop, waiting for an in-flight sweep to finish.
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.once.Do(j.cancel)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-j.done:
		return nil
	}
}

func (j *Janitor) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := j.now()

	if j.shares != nil {
		if n, err := j.shares.DeleteExpired(ctx, now); err != nil {
			j.logger.Error("purge expired sharing links", "error", err)
		} else if n > 0 {
			j.logger.Info("purged expired sharing links", "count", n)
		}
	}

	if j.tokens != nil {
		if n, err := j.tokens.DeleteExpired(ctx, now); err != nil {
			j.logger.Error("purge expired used tokens", "error", err)
		} else if n > 0 {
			j.logger.Info("purged expired used tokens", "count", n)
		}
	}
}

func (j *Janitor) now() time.Time {
	if j.NowFunc != nil {
		return j.NowFunc()
	}
	return time.Now().UTC()
}
