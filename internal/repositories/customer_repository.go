package repositories

import (
	"context"

	"github.com/thundershare/backend/internal/models"
)

// CustomerRepository defines the data access contract for customers.
type CustomerRepository interface {
	Create(ctx context.Context, customer models.Customer) error
	FindByUsername(ctx context.Context, username string) (models.Customer, error)
	FindByID(ctx context.Context, id string) (models.Customer, error)
	FindByCredential(ctx context.Context, username, password string) (models.Customer, error)
}
