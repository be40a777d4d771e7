package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/leadgen-dispatch/internal/audit"
	appconfig "github.com/wolfman30/leadgen-dispatch/internal/config"
	"github.com/wolfman30/leadgen-dispatch/internal/errorlog"
	"github.com/wolfman30/leadgen-dispatch/internal/leads"
	"github.com/wolfman30/leadgen-dispatch/internal/scripts"
	"github.com/wolfman30/leadgen-dispatch/internal/triage"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; dispatch runs will not be locked", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// OpenDatabase connects the pgx pool used by the stores and a database/sql
// handle over the same pool for the error log.
func OpenDatabase(ctx context.Context, databaseURL string) (*pgxpool.Pool, *sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil, fmt.Errorf("bootstrap: DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("bootstrap: ping db: %w", err)
	}
	return pool, stdlib.OpenDBFromPool(pool), nil
}

// PostgresStores backs every store with the shared pool; the error log uses
// the database/sql handle.
func PostgresStores(pool *pgxpool.Pool, sqlDB *sql.DB) Stores {
	return Stores{
		Scripts:  scripts.NewPostgresStore(pool),
		Leads:    leads.NewPostgresRepository(pool),
		Recorder: audit.NewPostgresRecorder(pool),
		Errors:   errorlog.NewSQLStore(sqlDB),
		Inbound:  triage.NewPostgresInboundStore(pool),
	}
}
