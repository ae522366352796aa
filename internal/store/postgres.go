package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink/internal/shortener"
)

const uniqueViolation = "23505"

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed entry store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) FindByCode(ctx context.Context, code shortener.Code) (*shortener.Entry, error) {
	query := `
		SELECT code, address, created_at, expires_at
		FROM short_entries
		WHERE code = $1
	`

	return scanEntry(p.pool.QueryRow(ctx, query, string(code)))
}

func (p *PostgresStore) FindFirstByCodeOrAddress(
	ctx context.Context, code shortener.Code, address string,
) (*shortener.Entry, error) {
	if code == "" && address == "" {
		return nil, shortener.ErrNotFound
	}

	query := `
		SELECT code, address, created_at, expires_at
		FROM short_entries
		WHERE (code = $1 OR address = $2)
		  AND (expires_at IS NULL OR expires_at > now())
		ORDER BY (code = $1) DESC, created_at, code
		LIMIT 1
	`

	return scanEntry(p.pool.QueryRow(ctx, query, string(code), address))
}

func (p *PostgresStore) Insert(ctx context.Context, entry *shortener.Entry) (*shortener.Entry, error) {
	// An expired row still holding the code is replaced; an active one is a conflict.
	query := `
		INSERT INTO short_entries (code, address, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE
		SET address = EXCLUDED.address,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
		WHERE short_entries.expires_at IS NOT NULL AND short_entries.expires_at <= now()
		RETURNING code, address, created_at, expires_at
	`

	inserted, err := scanEntry(p.pool.QueryRow(ctx, query,
		string(entry.Code),
		entry.Address,
		entry.CreatedAt,
		entry.ExpiresAt,
	))
	if errors.Is(err, shortener.ErrNotFound) {
		return nil, shortener.ErrConflict
	}

	return inserted, err
}

func (p *PostgresStore) UpdateAddress(
	ctx context.Context, code shortener.Code, address string, expiresAt *time.Time,
) (*shortener.Entry, error) {
	query := `
		UPDATE short_entries
		SET address = $2, expires_at = $3
		WHERE code = $1 AND (expires_at IS NULL OR expires_at > now())
		RETURNING code, address, created_at, expires_at
	`

	return scanEntry(p.pool.QueryRow(ctx, query, string(code), address, expiresAt))
}

func (p *PostgresStore) DeleteByCode(ctx context.Context, code shortener.Code) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM short_entries WHERE code = $1`, string(code))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) DeleteExpired(ctx context.Context, before time.Time, limit int) ([]shortener.Code, error) {
	query := `
		DELETE FROM short_entries
		WHERE code IN (
			SELECT code FROM short_entries
			WHERE expires_at IS NOT NULL AND expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
		)
		RETURNING code
	`

	rows, err := p.pool.Query(ctx, query, before, limit)
	if err != nil {
		return nil, err
	}

	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	out := make([]shortener.Code, len(codes))
	for i, c := range codes {
		out[i] = shortener.Code(c)
	}

	return out, nil
}

// Ping checks PostgreSQL connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func scanEntry(row pgx.Row) (*shortener.Entry, error) {
	var (
		entry     shortener.Entry
		code      string
		expiresAt *time.Time
	)

	err := row.Scan(&code, &entry.Address, &entry.CreatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, shortener.ErrConflict
		}

		return nil, err
	}

	entry.Code = shortener.Code(code)
	entry.ExpiresAt = expiresAt

	return &entry, nil
}

// Compile-time check.
var _ shortener.Repository = (*PostgresStore)(nil)
