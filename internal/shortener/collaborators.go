package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Store calls are authoritative: failures surface, mapped to ErrUnavailable unless
// they already carry a business meaning.

func storeError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}

	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func (s *Service) storeInsert(ctx context.Context, entry *Entry) (*Entry, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	inserted, err := s.store.Insert(ctx, entry)
	if err != nil {
		return nil, storeError("insert", err)
	}

	return inserted, nil
}

func (s *Service) findByCode(ctx context.Context, code Code) (*Entry, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	entry, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, storeError("find by code", err)
	}

	return entry, nil
}

func (s *Service) findFirst(ctx context.Context, code Code, address string) (*Entry, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	entry, err := s.store.FindFirstByCodeOrAddress(ctx, code, address)
	if err != nil {
		return nil, storeError("find by code or address", err)
	}

	return entry, nil
}

func (s *Service) updateAddress(ctx context.Context, code Code, address string, expiresAt *time.Time) (*Entry, error) {
	ctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	entry, err := s.store.UpdateAddress(ctx, code, address, expiresAt)
	if err != nil {
		return nil, storeError("update address", err)
	}

	return entry, nil
}

func (s *Service) deleteByCode(ctx context.Context, code Code) error {
	ctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.store.DeleteByCode(ctx, code); err != nil {
		return storeError("delete", err)
	}

	return nil
}

// Cache and filter calls are best effort: failures are logged and degrade to a
// miss or a "possibly present" answer.

func (s *Service) cacheGet(ctx context.Context, code Code) (string, bool) {
	ctx, cancel := withTimeout(ctx, s.cfg.CacheTimeout)
	defer cancel()

	address, err := s.cache.Get(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("cache read failed, falling through to store",
				zap.String("code", string(code)),
				zap.Error(err),
			)
		}

		return "", false
	}

	return address, true
}

func (s *Service) cacheSet(ctx context.Context, code Code, address string, ttl time.Duration) {
	ctx, cancel := withTimeout(ctx, s.cfg.CacheTimeout)
	defer cancel()

	if err := s.cache.Set(ctx, code, address, ttl); err != nil {
		s.logger.Warn("cache write failed",
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}
}

func (s *Service) cacheInvalidate(ctx context.Context, code Code) {
	ctx, cancel := withTimeout(ctx, s.cfg.CacheTimeout)
	defer cancel()

	if err := s.cache.Invalidate(ctx, code); err != nil {
		s.logger.Warn("cache invalidation failed",
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}
}

func (s *Service) mightContain(ctx context.Context, code Code) bool {
	ctx, cancel := withTimeout(ctx, s.cfg.FilterTimeout)
	defer cancel()

	ok, err := s.filter.MightContain(ctx, code)
	if err != nil {
		s.logger.Warn("existence filter check failed, treating as possibly present",
			zap.String("code", string(code)),
			zap.Error(err),
		)

		return true
	}

	return ok
}

func (s *Service) filterAdd(ctx context.Context, code Code) {
	ctx, cancel := withTimeout(ctx, s.cfg.FilterTimeout)
	defer cancel()

	if err := s.filter.Add(ctx, code); err != nil {
		s.logger.Error("failed to add code to existence filter",
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}
}
