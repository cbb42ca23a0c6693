package models

import "time"

// Customer represents a registered account within Thundershare.
type Customer struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FileMeta records an uploaded file and where its bytes live in blob storage.
type FileMeta struct {
	ID         string
	OwnerID    string
	StorageKey string
	Size       int64
	CreatedAt  time.Time
}

// FileShare is a public, time-limited handle onto a stored file. A nil
// Password means the link is open to anyone holding it.
type FileShare struct {
	ID        string
	FileID    string
	Link      string
	ExpiresAt time.Time
	Password  *string
	CreatedAt time.Time
}

// SessionToken is the bearer credential issued to an authenticated customer.
type SessionToken struct {
	Token      string
	CustomerID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}
