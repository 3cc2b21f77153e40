// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

// Package database opens the read-side connection to the observation
// store. Two drivers are wired: DuckDB (the production store, opened
// read-only) and SQLite via the pure-Go modernc driver (small
// deployments and tests). The exporter never writes through this
// package.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "modernc.org/sqlite"

	"github.com/karthiklsarma/ichnaea/internal/config"
)

// pingTimeout bounds the initial connection check.
const pingTimeout = 5 * time.Second

// DB wraps the sql connection to the observation store.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens a connection for the configured driver and verifies it with a
// bounded ping. The export loop is sequential, so the pool is pinned to a
// single connection; that also keeps the SQLite driver safe for
// file-backed databases.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path not configured")
	}

	driverName, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to %s database at %s: %w", cfg.Driver, cfg.Path, err)
	}

	return &DB{conn: conn, cfg: cfg}, nil
}

// dataSource builds the driver name and DSN for the configured backend.
func dataSource(cfg *config.DatabaseConfig) (string, string, error) {
	switch cfg.Driver {
	case "duckdb":
		numThreads := cfg.Threads
		if numThreads <= 0 {
			numThreads = runtime.NumCPU()
		}
		maxMemory := cfg.MaxMemory
		if maxMemory == "" {
			maxMemory = "1GB"
		}
		// Read-only access: the exporter must never mutate or lock out
		// the ingest side of the store.
		dsn := fmt.Sprintf("%s?access_mode=read_only&threads=%d&max_memory=%s",
			cfg.Path, numThreads, maxMemory)
		return "duckdb", dsn, nil
	case "sqlite":
		return "sqlite", cfg.Path, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// QueryContext executes a read query against the store.
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}
