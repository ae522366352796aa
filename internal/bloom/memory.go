package bloom

import (
	"context"
	"sync"

	"github.com/serroba/shortlink/internal/shortener"
)

// Memory is an in-process bloom filter. It does not survive restarts, so it only
// suits single-process deployments and tests.
type Memory struct {
	mu   sync.RWMutex
	bits []uint64
	m    uint64
	k    uint32
}

// NewMemory allocates a filter sized by params.
func NewMemory(params Params) (*Memory, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	m := params.Bits()

	return &Memory{
		bits: make([]uint64, (m+63)/64),
		m:    m,
		k:    params.Hashes(),
	}, nil
}

// Reserve is a no-op: the bitset is allocated by NewMemory.
func (f *Memory) Reserve(_ context.Context) error {
	return nil
}

func (f *Memory) Add(_ context.Context, code shortener.Code) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, loc := range locations(string(code), f.m, f.k) {
		f.bits[loc/64] |= 1 << (loc % 64)
	}

	return nil
}

func (f *Memory) MightContain(_ context.Context, code shortener.Code) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, loc := range locations(string(code), f.m, f.k) {
		if f.bits[loc/64]&(1<<(loc%64)) == 0 {
			return false, nil
		}
	}

	return true, nil
}

var _ shortener.Filter = (*Memory)(nil)
