package repository

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/tradingzbotem/sparks/pkg/domain"
)

//go:embed schema.sql
var schema string

// NewsStore is the persistence and query layer for news items. All mutation
// goes through upserts keyed by the natural key, so concurrent writers
// converge instead of conflicting.
type NewsStore interface {
	UpsertRawNews(ctx context.Context, items []domain.NewsItem) (added int, err error)
	ListNews(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error)
	ListUnenriched(ctx context.Context, limit int) ([]domain.NewsItem, error)
	UpdateEnrichment(ctx context.Context, url string, e domain.Enrichment) error
	PurgeSeedItems(ctx context.Context) (removed int64, err error)
}

// BriefStore keeps at most one latest brief per window
type BriefStore interface {
	UpsertBrief(ctx context.Context, brief domain.Brief) error
	GetLatestBrief(ctx context.Context, window domain.Window) (*domain.Brief, error)
}

// Config represents storage configuration
type Config struct {
	Backend         string // "sqlite" or "memory"
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Stores bundles the two store implementations sharing one backend
type Stores struct {
	News  NewsStore
	Brief BriefStore

	db *sqlx.DB // nil for memory backend
}

// NewStores creates stores for the configured backend. An empty backend
// means sqlite.
func NewStores(ctx context.Context, cfg Config) (*Stores, error) {
	switch cfg.Backend {
	case "", "sqlite":
		db, err := openSQLite(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &Stores{News: NewNewsRepository(db), Brief: NewBriefRepository(db), db: db}, nil
	case "memory":
		mem := NewMemoryStore()
		return &Stores{News: mem, Brief: mem}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Close releases the underlying database connection if any
func (s *Stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// openSQLite opens the database, applies pragmas and initializes the schema
func openSQLite(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		cfg.DSN = "file:sparks.db?cache=shared&mode=rwc&_txlock=immediate"
	}

	db, err := sqlx.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}
