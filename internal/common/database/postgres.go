package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"grant-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// MatchingTables are the tables the grant source reads.
var MatchingTables = []string{"grants", "user_profiles"}

type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens a lib/pq pool sized from config. The pool is lazy; call
// Ping to verify the connection.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return newPostgresClient(db, cfg), nil
}

func newPostgresClient(db *sql.DB, cfg config.PostgresConfig) *PostgresClient {
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	idle := cfg.MaxIdle
	if idle <= 0 || (cfg.MaxConnections > 0 && idle > cfg.MaxConnections) {
		idle = cfg.MaxConnections
	}
	db.SetMaxIdleConns(idle)
	// long discovery runs hold one connection for the pool load only
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PostgresClient{DB: db}
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// MissingTables returns the names in tables that do not resolve in the
// current search path.
func (c *PostgresClient) MissingTables(ctx context.Context, tables ...string) ([]string, error) {
	var missing []string
	for _, table := range tables {
		var found sql.NullString
		if err := c.DB.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, table).Scan(&found); err != nil {
			return nil, fmt.Errorf("check table %s: %w", table, err)
		}
		if !found.Valid {
			missing = append(missing, table)
		}
	}
	return missing, nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
