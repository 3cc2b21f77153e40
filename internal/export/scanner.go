// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/karthiklsarma/ichnaea/internal/config"
	"github.com/karthiklsarma/ichnaea/internal/geocalc"
	"github.com/karthiklsarma/ichnaea/internal/logging"
	"github.com/karthiklsarma/ichnaea/internal/metrics"
	"github.com/karthiklsarma/ichnaea/internal/shards"
)

// DefaultPageSize is the scan window size when none is configured.
const DefaultPageSize = 25000

// Querier is the read-side contract the scanner needs from the data
// source. *database.DB and *sql.DB both satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Scanner drives windowed reads over one shard at a time. Memory is
// bounded by a single page regardless of table size; a query failure
// aborts immediately with no retry.
type Scanner struct {
	db      Querier
	limit   int
	limiter *rate.Limiter
}

// NewScanner builds a scanner from the export configuration. A
// pages-per-second setting of 0 leaves the scan loop unthrottled.
func NewScanner(db Querier, cfg *config.ExportConfig) *Scanner {
	limit := cfg.PageSize
	if limit <= 0 {
		limit = DefaultPageSize
	}
	var limiter *rate.Limiter
	if cfg.PagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.PagesPerSecond), 1)
	}
	return &Scanner{db: db, limit: limit, limiter: limiter}
}

// Scan pages through one shard, serializing each row and handing it to
// emit in shard order. When rect is non-nil its predicate restricts the
// scan without disturbing the shard's ordering. The loop terminates on
// the first window that returns zero rows. Returns the number of rows
// emitted.
func (s *Scanner) Scan(ctx context.Context, kind shards.Kind, shard *shards.Shard,
	rect *geocalc.Rectangle, emit func(line string) error) (int64, error) {

	where := ""
	if rect != nil {
		where = rect.Predicate()
	}
	stmt := shard.ScanQuery(where)

	var (
		total int64
		pages int64
	)
	offset := 0
	start := time.Now()

	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return total, fmt.Errorf("scan throttle: %w", err)
			}
		}

		n, err := s.scanPage(ctx, shard, stmt, offset, emit)
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
		total += n
		pages++
		offset += s.limit
	}

	metrics.RecordShardScan(string(kind), shard.Table(), total, pages, time.Since(start))
	logging.Debug().
		Str("table", shard.Table()).
		Int64("rows", total).
		Int64("pages", pages).
		Msg("Shard scan complete")

	return total, nil
}

// scanPage reads one window and returns the number of rows it held.
func (s *Scanner) scanPage(ctx context.Context, shard *shards.Shard, stmt string,
	offset int, emit func(line string) error) (int64, error) {

	rows, err := s.db.QueryContext(ctx, stmt, s.limit, offset)
	if err != nil {
		return 0, fmt.Errorf("scan %s at offset %d: %w", shard.Table(), offset, err)
	}
	defer func() {
		_ = rows.Close() // drained below, Close errors surface via rows.Err
	}()

	var n int64
	for rows.Next() {
		line, err := shard.ScanRow(rows)
		if err != nil {
			return n, fmt.Errorf("serialize %s row: %w", shard.Table(), err)
		}
		if err := emit(line); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("scan %s at offset %d: %w", shard.Table(), offset, err)
	}
	return n, nil
}
