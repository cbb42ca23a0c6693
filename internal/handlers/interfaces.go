package handlers

import (
	"context"
	"io"

	"github.com/thundershare/backend/internal/auth"
	"github.com/thundershare/backend/internal/files"
	"github.com/thundershare/backend/internal/models"
)

// CustomerService captures the account operations required by the customer handlers.
type CustomerService interface {
	SignUp(ctx context.Context, username, password string) (models.SessionToken, error)
	SignIn(ctx context.Context, username, password string) (models.SessionToken, error)
	SignOut(ctx context.Context, identity auth.Identity) error
	ByID(ctx context.Context, id string) (models.Customer, error)
}

// FileService captures the upload and sharing operations required by the file handlers.
type FileService interface {
	Upload(ctx context.Context, ownerID string, r io.Reader, size int64) (models.FileMeta, error)
	ByID(ctx context.Context, id, requesterID string) (models.FileMeta, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.FileMeta, error)
	CreateShare(ctx context.Context, req files.CreateShareRequest) (models.FileShare, error)
	OpenShare(ctx context.Context, shareID, password string) (models.FileMeta, io.ReadCloser, error)
}

// TokenVerifier resolves a bearer token into the identity it carries.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}
