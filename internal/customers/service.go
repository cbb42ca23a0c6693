// Package customers implements the account lifecycle: signup, signin,
// signout, and customer lookups.
package customers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/thundershare/backend/internal/auth"
	"github.com/thundershare/backend/internal/models"
	"github.com/thundershare/backend/internal/repositories"
)

var (
	// ErrAlreadyExists indicates the username is already registered.
	ErrAlreadyExists = errors.New("customer already exists")
	// ErrInvalidCredential indicates no customer matches the supplied username/password pair.
	ErrInvalidCredential = errors.New("invalid username/password combination")
	// ErrNotFound indicates the requested customer does not exist.
	ErrNotFound = errors.New("customer not found")
)

// CredentialStore captures the persistence operations required by the
// customer service. Implementations are expected to be internally
// synchronized; the service holds no mutable state of its own.
type CredentialStore interface {
	Create(ctx context.Context, customer models.Customer) error
	FindByUsername(ctx context.Context, username string) (models.Customer, error)
	FindByID(ctx context.Context, id string) (models.Customer, error)
	FindByCredential(ctx context.Context, username, password string) (models.Customer, error)
}

// Service orchestrates the credential store, the token codec, and the
// used-token ledger.
type Service struct {
	store   CredentialStore
	codec   *auth.Codec
	revoked auth.RevokedTokenStore
	NowFunc func() time.Time
}

// NewService constructs the customer service with its collaborators.
func NewService(store CredentialStore, codec *auth.Codec, revoked auth.RevokedTokenStore) *Service {
	return &Service{store: store, codec: codec, revoked: revoked}
}

// SignUp registers a new customer and issues a session token for it.
// The username pre-check is an early exit only; the store's uniqueness
// constraint remains authoritative under concurrent signups.
func (s *Service) SignUp(ctx context.Context, username, password string) (models.SessionToken, error) {
	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		return models.SessionToken{}, ErrAlreadyExists
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.SessionToken{}, fmt.Errorf("check existing username: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.SessionToken{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	customer := models.Customer{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, customer); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.SessionToken{}, ErrAlreadyExists
		}
		return models.SessionToken{}, fmt.Errorf("create customer: %w", err)
	}

	return s.issue(customer.ID, now)
}

// SignIn authenticates the username/password pair against the store's
// combined credential lookup and issues a fresh session token.
func (s *Service) SignIn(ctx context.Context, username, password string) (models.SessionToken, error) {
	customer, err := s.store.FindByCredential(ctx, username, password)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.SessionToken{}, ErrInvalidCredential
		}
		return models.SessionToken{}, fmt.Errorf("credential lookup: %w", err)
	}

	return s.issue(customer.ID, s.now())
}

// SignOut records the identity's serialized token in the used-token ledger.
// The ledger is append-only; whether later requests honour it is owned by the
// token verifier, not this service.
func (s *Service) SignOut(ctx context.Context, identity auth.Identity) error {
	token, err := s.codec.Encode(identity)
	if err != nil {
		return err
	}

	if err := s.revoked.Add(ctx, token, identity.ExpiresAt); err != nil {
		return fmt.Errorf("record used token: %w", err)
	}

	return nil
}

// ByUsername fetches a customer by username.
func (s *Service) ByUsername(ctx context.Context, username string) (models.Customer, error) {
	customer, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Customer{}, ErrNotFound
		}
		return models.Customer{}, fmt.Errorf("find customer by username: %w", err)
	}
	return customer, nil
}

// ByID fetches a customer by its identifier.
func (s *Service) ByID(ctx context.Context, id string) (models.Customer, error) {
	customer, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Customer{}, ErrNotFound
		}
		return models.Customer{}, fmt.Errorf("find customer by id: %w", err)
	}
	return customer, nil
}

func (s *Service) issue(customerID string, now time.Time) (models.SessionToken, error) {
	identity := s.codec.Issue(customerID, now)

	token, err := s.codec.Encode(identity)
	if err != nil {
		return models.SessionToken{}, err
	}

	return models.SessionToken{
		Token:      token,
		CustomerID: identity.CustomerID,
		IssuedAt:   identity.IssuedAt,
		ExpiresAt:  identity.ExpiresAt,
	}, nil
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
