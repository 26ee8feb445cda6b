package db

import (
	"context"
	"fmt"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Options параметры подключения к PostgreSQL
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectTimeout общее время на попытки подключения при старте
	ConnectTimeout time.Duration
}

// Connect открывает пул соединений через драйвер pgx и ждет готовности базы,
// повторяя попытки с экспоненциальной задержкой.
func Connect(ctx context.Context, opts Options, log *logger.Logger) (*sqlx.DB, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 30 * time.Second
	}

	var db *sqlx.DB
	operation := func() error {
		conn, err := sqlx.ConnectContext(ctx, "pgx", opts.DSN)
		if err != nil {
			log.Warnw("Database not ready, retrying", "error", err)
			return err
		}
		db = conn
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = opts.ConnectTimeout

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		log.Errorw("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	log.Info("Successfully connected to PostgreSQL")
	return db, nil
}

// Health проверяет доступность базы
func Health(ctx context.Context, db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
