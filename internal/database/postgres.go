package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"imaginify/internal/apperror"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDSN adjusts a connection string for the target environment. Local
// databases run without TLS; hosted ones usually sit behind a transaction
// pooler that cannot keep server-side prepared statements.
func PostgresDSN(dsn, environment string) string {
	if environment == "development" && !strings.Contains(dsn, "sslmode") {
		dsn = appendParam(dsn, "sslmode=disable")
	}
	if environment != "development" && !strings.Contains(dsn, "default_query_exec_mode") {
		dsn = appendParam(dsn, "default_query_exec_mode=simple_protocol")
	}
	return dsn
}

func appendParam(dsn, param string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if strings.Contains(dsn, "?") {
			return dsn + "&" + param
		}
		return dsn + "?" + param
	}
	// keyword/value form
	return dsn + " " + param
}

// OpenPostgres builds a pool and pings it.
func OpenPostgres(ctx context.Context, dsn, environment string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, apperror.MissingConfig("DB_CONNECTION_STRING")
	}

	poolCfg, err := pgxpool.ParseConfig(PostgresDSN(dsn, environment))
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 25
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
