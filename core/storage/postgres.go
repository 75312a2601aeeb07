package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	coreconfig "github.com/m3rciful/teleads/core/config"
	"github.com/m3rciful/teleads/core/logger"
)

// Postgres implements Store on top of a single kv table.
type Postgres struct {
	db *sqlx.DB
}

// Connect opens the database connection, configures the pool, and verifies connectivity.
func Connect(cfg coreconfig.StoreConfig) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	took := time.Since(start)
	if err != nil {
		logger.Error(ctx, "store", "db.connect",
			slog.String("status", "fail"),
			slog.String("host", cfg.Host),
			slog.String("port", cfg.Port),
			slog.String("db", cfg.Name),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	logger.Info(ctx, "store", "db.connect",
		slog.String("status", "ok"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	return &Postgres{db: db}, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Get returns the value for key, or ErrNotFound.
func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, nil
}

// GetVersioned returns the value and its version; a missing key yields ("", 0, nil).
func (p *Postgres) GetVersioned(ctx context.Context, key string) (string, int64, error) {
	var row struct {
		Value   string `db:"value"`
		Version int64  `db:"version"`
	}
	err := p.db.GetContext(ctx, &row, `SELECT value, version FROM kv WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("kv get versioned %q: %w", key, err)
	}
	return row.Value, row.Version, nil
}

// Set writes the value unconditionally, bumping the version.
func (p *Postgres) Set(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, version, updated_at) VALUES ($1, $2, 1, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, version = kv.version + 1, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// SetVersioned writes the value only if the stored version equals expect.
func (p *Postgres) SetVersioned(ctx context.Context, key, value string, expect int64) error {
	var res sql.Result
	var err error
	if expect == 0 {
		res, err = p.db.ExecContext(ctx,
			`INSERT INTO kv (key, value, version, updated_at) VALUES ($1, $2, 1, now())
			 ON CONFLICT (key) DO NOTHING`,
			key, value,
		)
	} else {
		res, err = p.db.ExecContext(ctx,
			`UPDATE kv SET value = $2, version = version + 1, updated_at = now()
			 WHERE key = $1 AND version = $3`,
			key, value, expect,
		)
	}
	if err != nil {
		return fmt.Errorf("kv set versioned %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("kv set versioned %q: %w", key, err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}
