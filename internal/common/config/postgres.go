package config

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresPingTimeout bounds the startup connectivity check.
const postgresPingTimeout = 5 * time.Second

// PostgresPoolConfig parses DATABASE_URL and applies the pool and session settings.
// Every connection is tagged with DB_APPLICATION_NAME so record writes can be traced
// in pg_stat_activity, and DB_STATEMENT_TIMEOUT caps how long a wizard request can
// hold a row lock.
func (c *Config) PostgresPoolConfig() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if c.DBMaxConns < 1 {
		return nil, fmt.Errorf("DB_MAX_CONNS: must be at least 1, got %d", c.DBMaxConns)
	}

	poolConfig.MaxConns = int32(c.DBMaxConns)
	poolConfig.MinConns = int32(min(c.DBMinConns, c.DBMaxConns))
	poolConfig.MaxConnLifetime = time.Duration(c.DBMaxConnLifetime) * time.Minute
	poolConfig.MaxConnIdleTime = time.Duration(c.DBMaxConnIdleTime) * time.Minute

	params := poolConfig.ConnConfig.RuntimeParams
	if c.DBApplicationName != "" {
		params["application_name"] = c.DBApplicationName
	}
	if c.DBStatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(c.DBStatementTimeout.Milliseconds(), 10)
	}
	return poolConfig, nil
}

// NewPostgresPool opens the record store pool and checks that the database answers.
func (c *Config) NewPostgresPool(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := c.PostgresPoolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database %s: %w", poolConfig.ConnConfig.Host, err)
	}
	return pool, nil
}
