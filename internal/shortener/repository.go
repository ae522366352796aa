package shortener

import (
	"context"
	"time"
)

// Repository is the durable source of truth for entries.
type Repository interface {
	// FindByCode returns the entry for code, expired or not. Returns ErrNotFound if absent.
	FindByCode(ctx context.Context, code Code) (*Entry, error)

	// FindFirstByCodeOrAddress returns the first active entry matching code, or failing
	// that address, oldest first. Empty arguments are ignored. Returns ErrNotFound if none.
	FindFirstByCodeOrAddress(ctx context.Context, code Code, address string) (*Entry, error)

	// Insert stores a new entry. Returns ErrConflict if an active entry holds the code.
	// An expired entry with the same code is replaced.
	Insert(ctx context.Context, entry *Entry) (*Entry, error)

	// UpdateAddress changes the address and expiry of an active entry.
	// Returns ErrNotFound if no active entry holds the code.
	UpdateAddress(ctx context.Context, code Code, address string, expiresAt *time.Time) (*Entry, error)

	// DeleteByCode removes the entry. Returns ErrNotFound if absent.
	DeleteByCode(ctx context.Context, code Code) error

	// DeleteExpired removes up to limit entries that expired before the given time
	// and returns their codes.
	DeleteExpired(ctx context.Context, before time.Time, limit int) ([]Code, error)
}

// Cache is the volatile code -> address layer in front of the Repository.
type Cache interface {
	// Get returns the cached address. Returns ErrCacheMiss if none is held.
	Get(ctx context.Context, code Code) (string, error)

	// Set stores the address. A zero ttl stores it without expiry.
	Set(ctx context.Context, code Code, address string, ttl time.Duration) error

	// Invalidate removes any cached address for code.
	Invalidate(ctx context.Context, code Code) error
}

// Filter is a probabilistic set of every code ever issued.
// It never reports false for a member and supports no removal.
type Filter interface {
	// Reserve creates the filter. Reserving an existing filter is not an error.
	Reserve(ctx context.Context) error

	// Add records code as a member.
	Add(ctx context.Context, code Code) error

	// MightContain returns false only if code was never added.
	MightContain(ctx context.Context, code Code) (bool, error)
}
