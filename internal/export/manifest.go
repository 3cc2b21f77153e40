// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

package export

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/karthiklsarma/ichnaea/internal/geocalc"
)

// ShardCount records how many rows one shard contributed to the export.
type ShardCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// Manifest is the optional sidecar written next to a completed export.
// It carries enough to verify the dump (checksum of the compressed
// bytes) and to audit what was exported without decompressing it.
type Manifest struct {
	RunID           string             `json:"run_id"`
	Datatype        string             `json:"datatype"`
	File            string             `json:"file"`
	SHA256          string             `json:"sha256"`
	BoundingBox     *geocalc.Rectangle `json:"bounding_box,omitempty"`
	Shards          []ShardCount       `json:"shards"`
	TotalRows       int64              `json:"total_rows"`
	StartedAt       time.Time          `json:"started_at"`
	DurationSeconds float64            `json:"duration_seconds"`
}

// manifestPath derives the sidecar path from the export destination.
func manifestPath(exportPath string) string {
	return exportPath + ".manifest.json"
}

// writeManifest renders the manifest and writes it atomically enough for
// a sidecar: the export file itself is the source of truth, the manifest
// is advisory and only ever written after a fully successful run.
func writeManifest(m *Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o640); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
