package app

import (
	"context"
	"log/slog"

	"github.com/thundershare/backend/internal/auth"
	"github.com/thundershare/backend/internal/config"
	"github.com/thundershare/backend/internal/customers"
	"github.com/thundershare/backend/internal/db"
	"github.com/thundershare/backend/internal/files"
	"github.com/thundershare/backend/internal/handlers"
	"github.com/thundershare/backend/internal/middleware"
	"github.com/thundershare/backend/internal/repositories"
	"github.com/thundershare/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup stops background workers and must be called
// during shutdown.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	codec, err := auth.NewCodec([]byte(cfg.TokenSecret), cfg.TokenTTL)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	blobStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	customerRepo := repositories.NewPostgresCustomerRepository(pool)
	fileRepo := repositories.NewPostgresFileRepository(pool)
	shareRepo := repositories.NewPostgresShareRepository(pool)
	usedTokens := repositories.NewPostgresUsedTokenStore(pool)

	janitor := files.NewJanitor(shareRepo, usedTokens, cfg.CleanupInterval, slog.Default())

	limiter := middleware.NewIPRateLimiter(
		cfg.RateLimit.RequestsPerWindow,
		cfg.RateLimit.Window,
		cfg.RateLimit.Burst,
		cfg.RateLimit.VisitorTTL,
	)

	deps := handlers.Dependencies{
		Customers:    customers.NewService(customerRepo, codec, usedTokens),
		Files:        files.NewService(fileRepo, shareRepo, blobStore),
		Verifier:     auth.NewVerifier(codec, usedTokens, cfg.EnforceSignOut),
		LoginLimiter: limiter,
	}

	return deps, janitor.Shutdown, nil
}
