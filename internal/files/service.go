// Package files implements upload bookkeeping, the per-customer ownership
// guard, and the sharing-link access-control state machine.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/thundershare/backend/internal/logging"
	"github.com/thundershare/backend/internal/models"
	"github.com/thundershare/backend/internal/repositories"
)

var (
	// ErrFileNotFound indicates the requested file or sharing link does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrNotOwner indicates the file exists but belongs to another customer.
	ErrNotOwner = errors.New("file does not belong to customer")
	// ErrShareExpired indicates the sharing link's expiry has passed.
	ErrShareExpired = errors.New("sharing link expired")
	// ErrSharePasswordMismatch indicates the supplied password does not match the link's.
	ErrSharePasswordMismatch = errors.New("sharing link password incorrect")
	// ErrBlobMissing is returned by BlobStorage implementations when the backing object is gone.
	ErrBlobMissing = errors.New("blob not found")
)

// MetadataStore captures persistence for file metadata.
type MetadataStore interface {
	Create(ctx context.Context, meta models.FileMeta) error
	FindByID(ctx context.Context, id string) (models.FileMeta, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.FileMeta, error)
}

// ShareStore captures persistence for sharing links.
type ShareStore interface {
	Create(ctx context.Context, share models.FileShare) error
	FindByID(ctx context.Context, id string) (models.FileShare, error)
}

// BlobStorage moves file bytes to durable storage and streams them back.
type BlobStorage interface {
	Save(ctx context.Context, key string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Service gates access to files directly (owner sessions) and through
// sharing links (delegable secondary credentials).
type Service struct {
	files   MetadataStore
	shares  ShareStore
	blobs   BlobStorage
	NowFunc func() time.Time
}

// NewService constructs the file service with its collaborators.
func NewService(files MetadataStore, shares ShareStore, blobs BlobStorage) *Service {
	return &Service{files: files, shares: shares, blobs: blobs}
}

// Upload stores the content under a fresh key and records metadata owned by
// the customer.
func (s *Service) Upload(ctx context.Context, ownerID string, r io.Reader, size int64) (models.FileMeta, error) {
	ctx, span := logging.StartSpan(ctx, "files.upload")
	defer span.End()

	key := uuid.NewString()

	if _, err := s.blobs.Save(ctx, key, r); err != nil {
		return models.FileMeta{}, fmt.Errorf("store blob: %w", err)
	}

	meta := models.FileMeta{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		StorageKey: key,
		Size:       size,
		CreatedAt:  s.now(),
	}

	if err := s.files.Create(ctx, meta); err != nil {
		return models.FileMeta{}, fmt.Errorf("record file metadata: %w", err)
	}

	return meta, nil
}

// ByID returns the file when it exists and belongs to the requester.
// Existence is checked before ownership, so a missing file is reported as
// such rather than as a permission failure.
func (s *Service) ByID(ctx context.Context, id, requesterID string) (models.FileMeta, error) {
	meta, err := s.files.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.FileMeta{}, ErrFileNotFound
		}
		return models.FileMeta{}, fmt.Errorf("find file: %w", err)
	}

	if meta.OwnerID != requesterID {
		return models.FileMeta{}, ErrNotOwner
	}

	return meta, nil
}

// ListByOwner returns all files owned by the customer.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]models.FileMeta, error) {
	metas, err := s.files.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return metas, nil
}

// CreateShareRequest describes a new sharing link. OwnerID is an explicit,
// optional ownership hook: when set, the target file must exist and belong to
// that customer before the link is created. The HTTP layer passes the
// authenticated customer here.
type CreateShareRequest struct {
	FileID    string
	ExpiresAt time.Time
	Password  *string
	OwnerID   string
}

// CreateShare persists a new sharing link for the file.
func (s *Service) CreateShare(ctx context.Context, req CreateShareRequest) (models.FileShare, error) {
	if req.OwnerID != "" {
		if _, err := s.ByID(ctx, req.FileID, req.OwnerID); err != nil {
			return models.FileShare{}, err
		}
	}

	id := uuid.NewString()
	share := models.FileShare{
		ID:        id,
		FileID:    req.FileID,
		Link:      "/api/v1/file/sharing/" + id,
		ExpiresAt: req.ExpiresAt.UTC(),
		Password:  req.Password,
		CreatedAt: s.now(),
	}

	if err := s.shares.Create(ctx, share); err != nil {
		return models.FileShare{}, fmt.Errorf("record sharing link: %w", err)
	}

	return share, nil
}

// OpenShare evaluates a public access request against the link and streams
// the underlying file. Checks run most-specific-first: link existence, then
// expiry, then password, then file resolution. An expired link never reveals
// whether the password would have matched.
func (s *Service) OpenShare(ctx context.Context, shareID, password string) (models.FileMeta, io.ReadCloser, error) {
	ctx, span := logging.StartSpan(ctx, "files.open_share")
	defer span.End()

	share, err := s.shares.FindByID(ctx, shareID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.FileMeta{}, nil, ErrFileNotFound
		}
		return models.FileMeta{}, nil, fmt.Errorf("find sharing link: %w", err)
	}

	if share.ExpiresAt.Before(s.now()) {
		return models.FileMeta{}, nil, ErrShareExpired
	}

	// An unprotected link accepts any supplied password, including none.
	if share.Password != nil && *share.Password != password {
		return models.FileMeta{}, nil, ErrSharePasswordMismatch
	}

	meta, err := s.files.FindByID(ctx, share.FileID)
	if err != nil {
		// Orphaned links surface as missing files.
		if errors.Is(err, repositories.ErrNotFound) {
			return models.FileMeta{}, nil, ErrFileNotFound
		}
		return models.FileMeta{}, nil, fmt.Errorf("find shared file: %w", err)
	}

	stream, err := s.blobs.Open(ctx, meta.StorageKey)
	if err != nil {
		if errors.Is(err, ErrBlobMissing) {
			return models.FileMeta{}, nil, ErrFileNotFound
		}
		return models.FileMeta{}, nil, fmt.Errorf("open blob %s: %w", meta.StorageKey, err)
	}

	return meta, stream, nil
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
