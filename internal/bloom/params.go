// Package bloom implements the existence filter: a set of every issued code that
// answers "definitely absent" or "possibly present" and never forgets a member.
package bloom

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
)

const (
	// DefaultCapacity is the expected number of codes.
	DefaultCapacity = 1_000_000

	// DefaultErrorRate is the target false-positive rate at DefaultCapacity.
	DefaultErrorRate = 0.01

	// DefaultKey names the filter in Redis.
	DefaultKey = "shortlink:filter"

	// maxBitmapBits is the largest offset range a Redis string can hold.
	maxBitmapBits = 1 << 32
)

var errInvalidParams = errors.New("invalid filter parameters")

// Params size a filter for an expected element count and false-positive rate.
type Params struct {
	Capacity  uint64
	ErrorRate float64
}

// DefaultParams returns 1,000,000 elements at 1% error.
func DefaultParams() Params {
	return Params{Capacity: DefaultCapacity, ErrorRate: DefaultErrorRate}
}

// Validate checks the capacity is positive and the error rate lies in (0, 1).
func (p Params) Validate() error {
	if p.Capacity == 0 {
		return fmt.Errorf("%w: capacity must be positive", errInvalidParams)
	}

	if p.ErrorRate <= 0 || p.ErrorRate >= 1 {
		return fmt.Errorf("%w: error rate %v must be in (0, 1)", errInvalidParams, p.ErrorRate)
	}

	return nil
}

// Bits returns the optimal bit count: m = -(n * ln(p)) / (ln(2)^2).
func (p Params) Bits() uint64 {
	m := -(float64(p.Capacity) * math.Log(p.ErrorRate)) / (math.Ln2 * math.Ln2)

	return uint64(math.Ceil(m))
}

// Hashes returns the optimal hash count: k = (m / n) * ln(2).
func (p Params) Hashes() uint32 {
	k := float64(p.Bits()) / float64(p.Capacity) * math.Ln2
	if k < 1 {
		return 1
	}

	return uint32(math.Round(k))
}

// locations derives k bit offsets in [0, m) from one FNV-1a hash, split into two
// independent values by a splitmix64 finalizer (double hashing).
func locations(value string, m uint64, k uint32) []uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(value))
	sum := h.Sum64()

	a := mix64(sum)
	b := mix64(sum^0x9e3779b97f4a7c15) | 1

	out := make([]uint64, k)
	for i := range out {
		out[i] = (a + uint64(i)*b) % m
	}

	return out
}

func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31

	return x
}
