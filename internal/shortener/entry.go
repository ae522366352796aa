package shortener

import "time"

// Code is the short, URL-safe identifier of an entry.
type Code string

// Entry maps a code to its canonical address.
type Entry struct {
	Code      Code
	Address   string
	CreatedAt time.Time
	ExpiresAt *time.Time // nil when the entry never expires
}

// Expired reports whether the entry is logically expired at now.
func (e *Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// Remaining returns the time left until expiry, or 0 when the entry never expires.
func (e *Entry) Remaining(now time.Time) time.Duration {
	if e.ExpiresAt == nil {
		return 0
	}

	return e.ExpiresAt.Sub(now)
}
