package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/serroba/shortlink/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[shortener.Code]shortener.Entry
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory entry store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[shortener.Code]shortener.Entry),
		now:     time.Now,
	}
}

// NewMemoryStoreWithClock creates an in-memory store that judges expiry by clock.
func NewMemoryStoreWithClock(clock func() time.Time) *MemoryStore {
	s := NewMemoryStore()
	s.now = clock

	return s
}

func (m *MemoryStore) FindByCode(_ context.Context, code shortener.Code) (*shortener.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return &entry, nil
}

func (m *MemoryStore) FindFirstByCodeOrAddress(
	_ context.Context, code shortener.Code, address string,
) (*shortener.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()

	if entry, ok := m.entries[code]; ok && code != "" && !entry.Expired(now) {
		return &entry, nil
	}

	if address == "" {
		return nil, shortener.ErrNotFound
	}

	var matches []shortener.Entry

	for _, entry := range m.entries {
		if entry.Address == address && !entry.Expired(now) {
			matches = append(matches, entry)
		}
	}

	if len(matches) == 0 {
		return nil, shortener.ErrNotFound
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}

		return matches[i].Code < matches[j].Code
	})

	return &matches[0], nil
}

func (m *MemoryStore) Insert(_ context.Context, entry *shortener.Entry) (*shortener.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[entry.Code]; ok && !existing.Expired(m.now()) {
		return nil, shortener.ErrConflict
	}

	stored := *entry
	m.entries[entry.Code] = stored

	return &stored, nil
}

func (m *MemoryStore) UpdateAddress(
	_ context.Context, code shortener.Code, address string, expiresAt *time.Time,
) (*shortener.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[code]
	if !ok || entry.Expired(m.now()) {
		return nil, shortener.ErrNotFound
	}

	entry.Address = address
	entry.ExpiresAt = expiresAt
	m.entries[code] = entry

	return &entry, nil
}

func (m *MemoryStore) DeleteByCode(_ context.Context, code shortener.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[code]; !ok {
		return shortener.ErrNotFound
	}

	delete(m.entries, code)

	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, before time.Time, limit int) ([]shortener.Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var codes []shortener.Code

	for code, entry := range m.entries {
		if len(codes) >= limit {
			break
		}

		if entry.Expired(before) {
			codes = append(codes, code)
			delete(m.entries, code)
		}
	}

	return codes, nil
}

// Compile-time check.
var _ shortener.Repository = (*MemoryStore)(nil)
