// Package wordpress reads and writes posts, terms and options directly in a
// WordPress MySQL database.
package wordpress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"autotag/internal/store"

	"github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"
)

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

var _ store.Store = (*Store)(nil)

// Store implements store.Store over the WordPress schema.
type Store struct {
	db *sql.DB
	t  tables
}

type tables struct {
	posts, terms, termTaxonomy, termRelationships, options, usage string
}

func newTables(prefix string) tables {
	return tables{
		posts:             prefix + "posts",
		terms:             prefix + "terms",
		termTaxonomy:      prefix + "term_taxonomy",
		termRelationships: prefix + "term_relationships",
		options:           prefix + "options",
		usage:             prefix + "autotag_ai_usage",
	}
}

// PoolOptions bounds the connection pool. Zero values use the defaults.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the WordPress database. Times are parsed as UTC.
func Open(ctx context.Context, dsn, prefix string, opts PoolOptions) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database DSN cannot be empty")
	}
	if !prefixPattern.MatchString(prefix) {
		return nil, fmt.Errorf("invalid table prefix %q", prefix)
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connector: %w", err)
	}
	db := sql.OpenDB(connector)

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := opts.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := opts.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return New(db, prefix), nil
}

// New wraps an open connection.
func New(db *sql.DB, prefix string) *Store {
	return &Store{db: db, t: newTables(prefix)}
}

// Migrate creates the AI usage table. WordPress owns the rest of the schema.
func (s *Store) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			created_at DATETIME NOT NULL,
			provider_name VARCHAR(64) NOT NULL,
			service_type VARCHAR(64) NOT NULL,
			model_name VARCHAR(191) NOT NULL,
			input_tokens INT NOT NULL DEFAULT 0,
			output_tokens INT NOT NULL DEFAULT 0,
			cost DOUBLE NOT NULL DEFAULT 0,
			post_id BIGINT UNSIGNED NULL,
			PRIMARY KEY (id),
			KEY created_at (created_at)
		) DEFAULT CHARSET=utf8mb4`, s.t.usage)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.t.usage, err)
	}
	log.Debugf("Table %s is ready", s.t.usage)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnf("Failed to close database: %v", err)
	}
}

// withTx runs fn in a transaction, committing when it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Warnf("Rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
