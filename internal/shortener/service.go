package shortener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/serroba/shortlink/internal/messaging"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Config tunes the resolution service.
type Config struct {
	// MaxGenerateAttempts bounds code regeneration after a store conflict.
	MaxGenerateAttempts int

	// ReadCacheTTL is the cache window used when a read populates the cache.
	// A nearer entry expiry shortens it. Non-positive values use the default.
	ReadCacheTTL time.Duration

	CacheTimeout  time.Duration
	FilterTimeout time.Duration
	StoreTimeout  time.Duration
}

// DefaultConfig returns the service defaults.
func DefaultConfig() Config {
	return Config{
		MaxGenerateAttempts: 5,
		ReadCacheTTL:        time.Hour,
		CacheTimeout:        100 * time.Millisecond,
		FilterTimeout:       100 * time.Millisecond,
		StoreTimeout:        2 * time.Second,
	}
}

// Events holds the lifecycle publishers. Nil publishers are skipped.
type Events struct {
	Created messaging.Publish[EntryCreated]
	Updated messaging.Publish[EntryUpdated]
	Deleted messaging.Publish[EntryDeleted]
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Store         Repository
	Cache         Cache
	Filter        Filter
	Canonicalizer *Canonicalizer // defaults to the standard tracking set
	GenerateCode  CodeGenerator
	Events        Events
	Clock         func() time.Time // defaults to time.Now
}

// CreateOptions are the optional inputs of Create.
type CreateOptions struct {
	// Code is used instead of a generated one when set.
	Code Code

	// TTL makes the entry expire after the given duration when positive.
	TTL time.Duration
}

// UpdateOptions are the optional inputs of Update.
type UpdateOptions struct {
	// TTL resets the expiry to now+TTL when positive. Otherwise the expiry is kept.
	TTL time.Duration
}

// DeleteOptions identify the entry to delete. Code takes precedence over Address.
type DeleteOptions struct {
	Code    Code
	Address string
}

// Service resolves codes to addresses, keeping the store behind a cache and an
// existence filter.
type Service struct {
	store        Repository
	cache        Cache
	filter       Filter
	canon        *Canonicalizer
	generateCode CodeGenerator
	events       Events
	now          func() time.Time
	cfg          Config
	logger       *zap.Logger
	lookups      singleflight.Group
}

// NewService creates a resolution service.
func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	canon := deps.Canonicalizer
	if canon == nil {
		canon = defaultCanonicalizer
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	if cfg.MaxGenerateAttempts < 1 {
		cfg.MaxGenerateAttempts = 1
	}

	// A zero ttl means "no expiry" to the cache; reads must never cache forever.
	if cfg.ReadCacheTTL <= 0 {
		cfg.ReadCacheTTL = DefaultConfig().ReadCacheTTL
	}

	return &Service{
		store:        deps.Store,
		cache:        deps.Cache,
		filter:       deps.Filter,
		canon:        canon,
		generateCode: deps.GenerateCode,
		events:       deps.Events,
		now:          clock,
		cfg:          cfg,
		logger:       logger,
	}
}

// Create stores a new entry for address and primes the cache and filter.
func (s *Service) Create(ctx context.Context, address string, opts CreateOptions) (*Entry, error) {
	canonical, err := s.canon.Canonicalize(address)
	if err != nil {
		return nil, err
	}

	if opts.TTL < 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrBadRequest)
	}

	if opts.Code != "" {
		if err = ValidateCode(opts.Code); err != nil {
			return nil, err
		}
	}

	now := s.now()

	var expiresAt *time.Time

	if opts.TTL > 0 {
		t := now.Add(opts.TTL)
		expiresAt = &t
	}

	entry, err := s.insert(ctx, canonical, opts.Code, now, expiresAt)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, entry.Code, entry.Address, opts.TTL)
	s.filterAdd(ctx, entry.Code)

	publish(ctx, s, s.events.Created, &EntryCreated{
		Code:      string(entry.Code),
		Address:   entry.Address,
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
	})

	return entry, nil
}

func (s *Service) insert(
	ctx context.Context, address string, code Code, now time.Time, expiresAt *time.Time,
) (*Entry, error) {
	attempts := s.cfg.MaxGenerateAttempts
	if code != "" {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		candidate := code
		if candidate == "" {
			candidate = Code(s.generateCode())
			if _, reserved := ReservedCodes[candidate]; reserved {
				continue
			}
		}

		entry, err := s.storeInsert(ctx, &Entry{
			Code:      candidate,
			Address:   address,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		})
		if err == nil {
			return entry, nil
		}

		if !errors.Is(err, ErrConflict) || code != "" {
			return nil, err
		}

		s.logger.Warn("generated code already in use, regenerating",
			zap.String("code", string(candidate)),
			zap.Int("attempt", attempt),
		)
	}

	return nil, fmt.Errorf("%w: no free code after %d attempts", ErrConflict, attempts)
}

// Get resolves code to its canonical address.
func (s *Service) Get(ctx context.Context, code Code) (string, error) {
	if ValidateCode(code) != nil {
		return "", ErrNotFound
	}

	if !s.mightContain(ctx, code) {
		return "", ErrNotFound
	}

	if address, ok := s.cacheGet(ctx, code); ok {
		return address, nil
	}

	// Concurrent misses share one store lookup; it outlives any single caller.
	loadCtx := context.WithoutCancel(ctx)

	v, err, _ := s.lookups.Do(string(code), func() (any, error) {
		return s.load(loadCtx, code)
	})
	if err != nil {
		return "", err
	}

	address, _ := v.(string)

	return address, nil
}

func (s *Service) load(ctx context.Context, code Code) (string, error) {
	entry, err := s.findByCode(ctx, code)
	if err != nil {
		return "", err
	}

	now := s.now()
	if entry.Expired(now) {
		return "", ErrNotFound
	}

	ttl := s.cfg.ReadCacheTTL
	if remaining := entry.Remaining(now); remaining > 0 && remaining < ttl {
		ttl = remaining
	}

	s.cacheSet(ctx, code, entry.Address, ttl)

	return entry.Address, nil
}

// Update points an active entry at a new address.
// The cached value is always invalidated; it is rewritten at once only when a TTL is given.
func (s *Service) Update(ctx context.Context, code Code, address string, opts UpdateOptions) (*Entry, error) {
	if ValidateCode(code) != nil {
		return nil, ErrNotFound
	}

	if opts.TTL < 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrBadRequest)
	}

	existing, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if existing.Expired(now) {
		return nil, ErrNotFound
	}

	canonical, err := s.canon.Canonicalize(address)
	if err != nil {
		return nil, err
	}

	expiresAt := existing.ExpiresAt
	if opts.TTL > 0 {
		t := now.Add(opts.TTL)
		expiresAt = &t
	}

	s.cacheInvalidate(ctx, code)

	updated, err := s.updateAddress(ctx, code, canonical, expiresAt)
	if err != nil {
		return nil, err
	}

	if opts.TTL > 0 {
		s.cacheSet(ctx, code, canonical, opts.TTL)
	}

	publish(ctx, s, s.events.Updated, &EntryUpdated{
		Code:      string(code),
		Address:   updated.Address,
		ExpiresAt: updated.ExpiresAt,
		UpdatedAt: now,
	})

	return updated, nil
}

// Delete removes the entry identified by code, or else by address.
// Filter membership is kept.
func (s *Service) Delete(ctx context.Context, opts DeleteOptions) (*Entry, error) {
	rawAddress := strings.TrimSpace(opts.Address)
	if opts.Code == "" && rawAddress == "" {
		return nil, fmt.Errorf("%w: code or address is required", ErrBadRequest)
	}

	var address string

	if rawAddress != "" {
		canonical, err := s.canon.Canonicalize(rawAddress)

		switch {
		case err == nil:
			address = canonical
		case opts.Code == "":
			return nil, err
		}
	}

	entry, err := s.findFirst(ctx, opts.Code, address)
	if err != nil {
		return nil, err
	}

	if err = s.deleteByCode(ctx, entry.Code); err != nil {
		return nil, err
	}

	s.cacheInvalidate(ctx, entry.Code)

	publish(ctx, s, s.events.Deleted, &EntryDeleted{
		Code:      string(entry.Code),
		DeletedAt: s.now(),
	})

	return entry, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, d)
}

func publish[T any](ctx context.Context, s *Service, fn messaging.Publish[T], event *T) {
	if fn == nil {
		return
	}

	if err := fn(ctx, event); err != nil {
		s.logger.Error("failed to publish lifecycle event", zap.Error(err))
	}
}
