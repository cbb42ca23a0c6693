package repositories

import (
	"context"

	"github.com/thundershare/backend/internal/models"
)

// FileRepository defines the data access contract for file metadata.
type FileRepository interface {
	Create(ctx context.Context, meta models.FileMeta) error
	FindByID(ctx context.Context, id string) (models.FileMeta, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.FileMeta, error)
}
