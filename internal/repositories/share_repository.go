package repositories

import (
	"context"
	"time"

	"github.com/thundershare/backend/internal/models"
)

// ShareRepository defines the data access contract for sharing links.
type ShareRepository interface {
	Create(ctx context.Context, share models.FileShare) error
	FindByID(ctx context.Context, id string) (models.FileShare, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
