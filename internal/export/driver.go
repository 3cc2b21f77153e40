// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

// Package export implements the paginated, filtered, streaming export
// engine: the per-shard windowed scan loop, the compressed output writer
// with its no-overwrite contract, and the driver that ties them to the
// shard registry.
//
// The pipeline is deliberately sequential: one shard at a time, one page
// at a time, blocking I/O throughout. The storage backend is the
// bottleneck, and a single writer with an existence check is the whole
// concurrency story — no two exports ever share a destination path.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/karthiklsarma/ichnaea/internal/config"
	"github.com/karthiklsarma/ichnaea/internal/database"
	"github.com/karthiklsarma/ichnaea/internal/geocalc"
	"github.com/karthiklsarma/ichnaea/internal/logging"
	"github.com/karthiklsarma/ichnaea/internal/metrics"
	"github.com/karthiklsarma/ichnaea/internal/shards"
)

// Request carries the validated CLI input for one export run. The
// coordinate fields are pointers so an unset flag is distinguishable
// from zero; only a complete triple activates the geographic filter,
// a partial triple silently means "no filter".
type Request struct {
	Datatype string
	Filename string
	Lat      *float64
	Lon      *float64
	Radius   *float64
	Manifest bool
}

// Run executes one export and returns the process exit code: 0 on full
// completion, 1 otherwise. Usage and precondition failures print a
// one-line diagnostic to stdout before any file is created; backend and
// I/O failures abort the run, are logged, and leave any partial output
// on disk for inspection.
func Run(ctx context.Context, cfg *config.Config, req Request) int {
	kind, err := shards.ParseKind(req.Datatype)
	if err != nil {
		fmt.Println("Unknown data type.")
		return 1
	}

	if req.Filename == "" {
		fmt.Println("File name is required.")
		return 1
	}
	path, err := ResolvePath(req.Filename)
	if err != nil {
		fmt.Println("Invalid file name.")
		return 1
	}
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		fmt.Println("File already exists.")
		return 1
	}

	var rect *geocalc.Rectangle
	if req.Lat != nil && req.Lon != nil && req.Radius != nil {
		r := geocalc.Bounds(*req.Lat, *req.Lon, *req.Radius)
		rect = &r
	}

	if cfg.Database.Path == "" {
		fmt.Println("You need to configure the database backend (set ICHNAEA_DATABASE_PATH or provide a config file).")
		return 1
	}

	runID := uuid.NewString()
	log := logging.With().
		Str("run_id", runID).
		Str("datatype", string(kind)).
		Str("file", path).
		Logger()

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to the observation store")
		metrics.RecordFailure("backend")
		return 1
	}
	defer database.CloseWithLog(db, "database connection")

	source, err := shards.ForKind(kind)
	if err != nil {
		// Unreachable after ParseKind, kept for the registry contract.
		fmt.Println("Unknown data type.")
		return 1
	}

	if rect != nil {
		log.Info().
			Float64("max_lat", rect.MaxLat).
			Float64("min_lat", rect.MinLat).
			Float64("max_lon", rect.MaxLon).
			Float64("min_lon", rect.MinLon).
			Msg("Export restricted to bounding box")
	}

	started := time.Now()
	writer, err := NewWriter(path, cfg.Export.CompressionLevel)
	if err != nil {
		if errors.Is(err, ErrExists) {
			fmt.Println("File already exists.")
			return 1
		}
		log.Error().Err(err).Msg("Failed to open export file")
		metrics.RecordFailure("write")
		return 1
	}

	scanner := NewScanner(db, &cfg.Export)
	counts, err := exportDataset(ctx, scanner, source, rect, writer, log)
	duration := time.Since(started)
	if err != nil {
		log.Error().Err(err).
			Dur("elapsed", duration).
			Msg("Export failed, partial output left in place")
		metrics.RecordFailure("scan")
		return 1
	}
	metrics.ExportDuration.Observe(duration.Seconds())

	var total int64
	for _, c := range counts {
		total += c.Rows
	}

	if req.Manifest || cfg.Export.Manifest {
		manifest := &Manifest{
			RunID:           runID,
			Datatype:        string(kind),
			File:            path,
			SHA256:          writer.Checksum(),
			BoundingBox:     rect,
			Shards:          counts,
			TotalRows:       total,
			StartedAt:       started.UTC(),
			DurationSeconds: duration.Seconds(),
		}
		if err := writeManifest(manifest, manifestPath(path)); err != nil {
			// The dump itself is complete; a manifest failure is not
			// worth discarding it over.
			log.Warn().Err(err).Msg("Failed to write export manifest")
		}
	}

	log.Info().
		Int64("rows", total).
		Int("shards", len(counts)).
		Dur("elapsed", duration).
		Str("sha256", writer.Checksum()).
		Msg("Export complete")

	return 0
}

// exportDataset writes the header and streams every shard of the source
// through the scanner into the writer. The writer is released on every
// exit path; a close failure on an otherwise clean run surfaces as the
// run's error.
func exportDataset(ctx context.Context, scanner *Scanner, source *shards.Source,
	rect *geocalc.Rectangle, writer *Writer, log zerolog.Logger) (counts []ShardCount, err error) {

	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close export file: %w", closeErr)
		}
	}()

	if err = writer.WriteString(source.Header() + "\n"); err != nil {
		return nil, err
	}

	for _, shard := range source.Shards() {
		log.Info().Str("table", shard.Table()).Msg("Exporting table")

		rows, scanErr := scanner.Scan(ctx, source.Kind(), shard, rect, func(line string) error {
			return writer.WriteString(line + "\n")
		})
		if scanErr != nil {
			return counts, scanErr
		}
		counts = append(counts, ShardCount{Table: shard.Table(), Rows: rows})
	}
	return counts, nil
}
