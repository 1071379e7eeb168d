// Package store provides Postgres-backed persistence for scraped catalog items.
package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for catalog rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Store persists and queries catalog items in Postgres.
type Store struct {
	pool  pool
	table string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "content_items"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "content_items"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: p, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Save upserts items keyed by id. A re-scraped item replaces the stored row.
func (s *Store) Save(ctx context.Context, items []catalog.ContentItem) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	kind,
	title,
	year,
	genres,
	rating,
	description,
	poster,
	runtime,
	source_url,
	fetched_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
ON CONFLICT (id) DO UPDATE SET
	kind = EXCLUDED.kind,
	title = EXCLUDED.title,
	year = EXCLUDED.year,
	genres = EXCLUDED.genres,
	rating = EXCLUDED.rating,
	description = EXCLUDED.description,
	poster = EXCLUDED.poster,
	runtime = EXCLUDED.runtime,
	source_url = EXCLUDED.source_url,
	fetched_at = EXCLUDED.fetched_at`, s.table)

	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("item id is required")
		}
		args := []any{
			item.ID,
			string(item.Kind),
			item.Title,
			item.Year,
			item.Genres,
			item.Rating,
			item.Description,
			item.Poster,
			item.Runtime,
			item.SourceURL,
			item.FetchedAt,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert item %s: %w", item.ID, err)
		}
	}
	return nil
}

// Query returns stored items matching filters, newest fetch first.
func (s *Store) Query(ctx context.Context, kind catalog.Kind, filters catalog.Filters) ([]catalog.ContentItem, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not configured")
	}

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if kind != "" {
		conds = append(conds, "kind = "+arg(string(kind)))
	}
	if filters.Genre != "" {
		conds = append(conds, arg(strings.ToLower(filters.Genre))+" = ANY(genres)")
	}
	if filters.YearFrom != nil {
		conds = append(conds, "year >= "+arg(*filters.YearFrom))
	}
	if filters.YearTo != nil {
		conds = append(conds, "year <= "+arg(*filters.YearTo))
	}
	if filters.MinRating != nil {
		conds = append(conds, "rating >= "+arg(*filters.MinRating))
	}

	query := fmt.Sprintf(
		"SELECT id, kind, title, year, genres, rating, description, poster, runtime, source_url, fetched_at FROM %s",
		s.table,
	)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY fetched_at DESC, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []catalog.ContentItem
	for rows.Next() {
		var (
			item catalog.ContentItem
			kind string
		)
		if err := rows.Scan(
			&item.ID,
			&kind,
			&item.Title,
			&item.Year,
			&item.Genres,
			&item.Rating,
			&item.Description,
			&item.Poster,
			&item.Runtime,
			&item.SourceURL,
			&item.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.Kind = catalog.Kind(kind)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}
