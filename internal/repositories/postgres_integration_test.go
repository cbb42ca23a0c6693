package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/thundershare/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresCustomerRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresCustomerRepository(testPool)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw1secure"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	customer := models.Customer{
		ID:           uuid.NewString(),
		Username:     "alice",
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.Create(ctx, customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}

	dup := models.Customer{
		ID:           uuid.NewString(),
		Username:     customer.Username,
		PasswordHash: "another-hash",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when creating duplicate username, got %v", err)
	}

	fetched, err := repo.FindByUsername(ctx, customer.Username)
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if fetched.ID != customer.ID || fetched.PasswordHash != customer.PasswordHash {
		t.Fatalf("unexpected customer fetched: %+v", fetched)
	}

	fetched, err = repo.FindByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.Username != customer.Username {
		t.Fatalf("unexpected customer fetched by id: %+v", fetched)
	}

	if _, err := repo.FindByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown username, got %v", err)
	}
	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestPostgresCustomerRepository_FindByCredential(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresCustomerRepository(testPool)
	customer := createTestCustomer(t, repo, "alice", "pw1secure")

	fetched, err := repo.FindByCredential(ctx, "alice", "pw1secure")
	if err != nil {
		t.Fatalf("find by credential: %v", err)
	}
	if fetched.ID != customer.ID {
		t.Fatalf("unexpected customer fetched: %+v", fetched)
	}

	if _, err := repo.FindByCredential(ctx, "alice", "wrong"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong password, got %v", err)
	}
	if _, err := repo.FindByCredential(ctx, "nobody", "pw1secure"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown username, got %v", err)
	}
}

func TestPostgresFileRepository_CreateFindAndList(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	customerRepo := NewPostgresCustomerRepository(testPool)
	owner := createTestCustomer(t, customerRepo, "alice", "pw1secure")
	other := createTestCustomer(t, customerRepo, "bob", "pw2secure")

	repo := NewPostgresFileRepository(testPool)

	baseTime := time.Now().UTC().Add(-time.Hour)
	first := models.FileMeta{
		ID:         uuid.NewString(),
		OwnerID:    owner.ID,
		StorageKey: uuid.NewString(),
		Size:       128,
		CreatedAt:  baseTime,
	}
	second := models.FileMeta{
		ID:         uuid.NewString(),
		OwnerID:    owner.ID,
		StorageKey: uuid.NewString(),
		Size:       256,
		CreatedAt:  baseTime.Add(10 * time.Minute),
	}
	foreign := models.FileMeta{
		ID:         uuid.NewString(),
		OwnerID:    other.ID,
		StorageKey: uuid.NewString(),
		Size:       64,
		CreatedAt:  baseTime.Add(5 * time.Minute),
	}

	for _, meta := range []models.FileMeta{first, second, foreign} {
		if err := repo.Create(ctx, meta); err != nil {
			t.Fatalf("create file %s: %v", meta.ID, err)
		}
	}

	orphan := models.FileMeta{
		ID:         uuid.NewString(),
		OwnerID:    uuid.NewString(),
		StorageKey: uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.Create(ctx, orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown owner, got %v", err)
	}

	fetched, err := repo.FindByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.StorageKey != first.StorageKey || fetched.Size != first.Size {
		t.Fatalf("unexpected file fetched: %+v", fetched)
	}

	metas, err := repo.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 files, got %d", len(metas))
	}
	if metas[0].ID != second.ID || metas[1].ID != first.ID {
		t.Fatalf("unexpected listing order: %+v", metas)
	}
}

func TestPostgresShareRepository_CreateFindAndPurge(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	customerRepo := NewPostgresCustomerRepository(testPool)
	owner := createTestCustomer(t, customerRepo, "alice", "pw1secure")

	fileRepo := NewPostgresFileRepository(testPool)
	meta := models.FileMeta{
		ID:         uuid.NewString(),
		OwnerID:    owner.ID,
		StorageKey: uuid.NewString(),
		Size:       32,
		CreatedAt:  time.Now().UTC(),
	}
	if err := fileRepo.Create(ctx, meta); err != nil {
		t.Fatalf("create file: %v", err)
	}

	repo := NewPostgresShareRepository(testPool)

	now := time.Now().UTC().Truncate(time.Millisecond)
	password := "link-secret"
	locked := models.FileShare{
		ID:        uuid.NewString(),
		FileID:    meta.ID,
		Link:      "/api/v1/file/sharing/locked",
		ExpiresAt: now.Add(time.Hour),
		Password:  &password,
		CreatedAt: now,
	}
	open := models.FileShare{
		ID:        uuid.NewString(),
		FileID:    meta.ID,
		Link:      "/api/v1/file/sharing/open",
		ExpiresAt: now.Add(-time.Hour),
		CreatedAt: now,
	}

	for _, share := range []models.FileShare{locked, open} {
		if err := repo.Create(ctx, share); err != nil {
			t.Fatalf("create share %s: %v", share.ID, err)
		}
	}

	orphan := models.FileShare{
		ID:        uuid.NewString(),
		FileID:    uuid.NewString(),
		Link:      "/api/v1/file/sharing/orphan",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	if err := repo.Create(ctx, orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown file, got %v", err)
	}

	fetched, err := repo.FindByID(ctx, locked.ID)
	if err != nil {
		t.Fatalf("find locked share: %v", err)
	}
	if fetched.Password == nil || *fetched.Password != password {
		t.Fatalf("expected password to round-trip, got %+v", fetched.Password)
	}
	if !timesClose(fetched.ExpiresAt, locked.ExpiresAt, time.Millisecond) {
		t.Fatalf("expected expiry to round-trip, got %v", fetched.ExpiresAt)
	}

	fetched, err = repo.FindByID(ctx, open.ID)
	if err != nil {
		t.Fatalf("find open share: %v", err)
	}
	if fetched.Password != nil {
		t.Fatalf("expected nil password, got %q", *fetched.Password)
	}

	removed, err := repo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("delete expired shares: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged share, got %d", removed)
	}

	if _, err := repo.FindByID(ctx, open.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired share to be gone, got %v", err)
	}
	if _, err := repo.FindByID(ctx, locked.ID); err != nil {
		t.Fatalf("expected live share to survive, got %v", err)
	}
}

func TestPostgresUsedTokenStore_AddContainsAndPurge(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresUsedTokenStore(testPool)

	now := time.Now().UTC()
	token := uuid.NewString()

	if err := store.Add(ctx, token, now.Add(10*time.Minute)); err != nil {
		t.Fatalf("add token: %v", err)
	}
	if err := store.Add(ctx, token, now.Add(10*time.Minute)); err != nil {
		t.Fatalf("expected re-adding the same token to be a no-op, got %v", err)
	}

	used, err := store.Contains(ctx, token)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !used {
		t.Fatal("expected recorded token to be reported as used")
	}

	used, err = store.Contains(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("contains unknown: %v", err)
	}
	if used {
		t.Fatal("unknown token reported as used")
	}

	stale := uuid.NewString()
	if err := store.Add(ctx, stale, now.Add(-time.Minute)); err != nil {
		t.Fatalf("add stale token: %v", err)
	}

	removed, err := store.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("delete expired tokens: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged token, got %d", removed)
	}

	used, err = store.Contains(ctx, token)
	if err != nil {
		t.Fatalf("contains after purge: %v", err)
	}
	if !used {
		t.Fatal("live token purged")
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE file_shares, files, used_tokens, customers CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestCustomer(t *testing.T, repo *PostgresCustomerRepository, username, password string) models.Customer {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	customer := models.Customer{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), customer); err != nil {
		t.Fatalf("create test customer: %v", err)
	}
	return customer
}

func timesClose(a, b time.Time, delta time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= delta
}
