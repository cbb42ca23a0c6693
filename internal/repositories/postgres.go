package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/thundershare/backend/internal/db"
	"github.com/thundershare/backend/internal/models"
)

// PostgresCustomerRepository provides PostgreSQL-backed persistence for customers.
type PostgresCustomerRepository struct {
	pool db.Pool
}

// NewPostgresCustomerRepository constructs a customer repository backed by PostgreSQL.
func NewPostgresCustomerRepository(pool db.Pool) *PostgresCustomerRepository {
	return &PostgresCustomerRepository{pool: pool}
}

// Create persists a new customer record.
func (r *PostgresCustomerRepository) Create(ctx context.Context, customer models.Customer) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO customers (id, username, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, customer.ID, customer.Username, customer.PasswordHash, customer.CreatedAt, customer.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert customer: %w", err)
	}

	return nil
}

// FindByUsername fetches a customer by their username.
func (r *PostgresCustomerRepository) FindByUsername(ctx context.Context, username string) (models.Customer, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Customer{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, username, password_hash, created_at, updated_at
        FROM customers
        WHERE username = $1
    `, username)

	return scanCustomer(row, "select customer by username")
}

// FindByID fetches a customer by their identifier.
func (r *PostgresCustomerRepository) FindByID(ctx context.Context, id string) (models.Customer, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Customer{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, username, password_hash, created_at, updated_at
        FROM customers
        WHERE id = $1
    `, id)

	return scanCustomer(row, "select customer by id")
}

// FindByCredential fetches the customer matching the username/password pair.
// A wrong password is indistinguishable from an unknown username: both
// return ErrNotFound.
func (r *PostgresCustomerRepository) FindByCredential(ctx context.Context, username, password string) (models.Customer, error) {
	customer, err := r.FindByUsername(ctx, username)
	if err != nil {
		return models.Customer{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)) != nil {
		return models.Customer{}, ErrNotFound
	}

	return customer, nil
}

func scanCustomer(row pgx.Row, op string) (models.Customer, error) {
	var customer models.Customer
	if err := row.Scan(&customer.ID, &customer.Username, &customer.PasswordHash, &customer.CreatedAt, &customer.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, ErrNotFound
		}
		return models.Customer{}, fmt.Errorf("%s: %w", op, err)
	}
	return customer, nil
}

// PostgresFileRepository provides PostgreSQL-backed persistence for file metadata.
type PostgresFileRepository struct {
	pool db.Pool
}

// NewPostgresFileRepository constructs a file repository backed by PostgreSQL.
func NewPostgresFileRepository(pool db.Pool) *PostgresFileRepository {
	return &PostgresFileRepository{pool: pool}
}

// Create persists metadata for an uploaded file.
func (r *PostgresFileRepository) Create(ctx context.Context, meta models.FileMeta) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO files (id, owner_id, storage_key, size, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, meta.ID, meta.OwnerID, meta.StorageKey, meta.Size, meta.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert file: %w", err)
	}

	return nil
}

// FindByID fetches file metadata by its identifier.
func (r *PostgresFileRepository) FindByID(ctx context.Context, id string) (models.FileMeta, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FileMeta{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, storage_key, size, created_at
        FROM files
        WHERE id = $1
    `, id)

	var meta models.FileMeta
	if err := row.Scan(&meta.ID, &meta.OwnerID, &meta.StorageKey, &meta.Size, &meta.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FileMeta{}, ErrNotFound
		}
		return models.FileMeta{}, fmt.Errorf("select file by id: %w", err)
	}

	return meta, nil
}

// ListByOwner returns the customer's files in reverse chronological order.
func (r *PostgresFileRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.FileMeta, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, owner_id, storage_key, size, created_at
        FROM files
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query files by owner: %w", err)
	}
	defer rows.Close()

	var metas []models.FileMeta
	for rows.Next() {
		var meta models.FileMeta
		if err := rows.Scan(&meta.ID, &meta.OwnerID, &meta.StorageKey, &meta.Size, &meta.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		metas = append(metas, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return metas, nil
}

// PostgresShareRepository provides PostgreSQL-backed persistence for sharing links.
type PostgresShareRepository struct {
	pool db.Pool
}

// NewPostgresShareRepository constructs a share repository backed by PostgreSQL.
func NewPostgresShareRepository(pool db.Pool) *PostgresShareRepository {
	return &PostgresShareRepository{pool: pool}
}

// Create persists a new sharing link.
func (r *PostgresShareRepository) Create(ctx context.Context, share models.FileShare) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO file_shares (id, file_id, link, expires_at, password, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, share.ID, share.FileID, share.Link, share.ExpiresAt.UTC(), share.Password, share.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert sharing link: %w", err)
	}

	return nil
}

// FindByID fetches a sharing link by its identifier.
func (r *PostgresShareRepository) FindByID(ctx context.Context, id string) (models.FileShare, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FileShare{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, file_id, link, expires_at, password, created_at
        FROM file_shares
        WHERE id = $1
    `, id)

	var share models.FileShare
	if err := row.Scan(&share.ID, &share.FileID, &share.Link, &share.ExpiresAt, &share.Password, &share.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FileShare{}, ErrNotFound
		}
		return models.FileShare{}, fmt.Errorf("select sharing link by id: %w", err)
	}

	share.ExpiresAt = share.ExpiresAt.UTC()
	return share, nil
}

// DeleteExpired removes sharing links whose expiry has passed.
func (r *PostgresShareRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM file_shares
        WHERE expires_at < $1
    `, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sharing links: %w", err)
	}

	return tag.RowsAffected(), nil
}

var _ CustomerRepository = (*PostgresCustomerRepository)(nil)
var _ FileRepository = (*PostgresFileRepository)(nil)
var _ ShareRepository = (*PostgresShareRepository)(nil)
