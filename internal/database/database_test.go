// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/karthiklsarma/ichnaea/internal/config"
)

func TestNewSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observations.db")
	db, err := New(&config.DatabaseConfig{Driver: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	rows, err := db.QueryContext(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatalf("QueryContext failed: %v", err)
	}
	defer rows.Close()
	if !rows.Next() {
		t.Error("expected one row from SELECT 1")
	}
}

func TestNewMissingPath(t *testing.T) {
	_, err := New(&config.DatabaseConfig{Driver: "sqlite"})
	if err == nil {
		t.Fatal("expected error for missing path")
	}
	if !strings.Contains(err.Error(), "not configured") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(&config.DatabaseConfig{Driver: "postgres", Path: "/tmp/x"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "unsupported database driver") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDuckDBDataSourceOptions(t *testing.T) {
	driver, dsn, err := dataSource(&config.DatabaseConfig{
		Driver:    "duckdb",
		Path:      "/data/obs.duckdb",
		MaxMemory: "2GB",
		Threads:   4,
	})
	if err != nil {
		t.Fatalf("dataSource failed: %v", err)
	}
	if driver != "duckdb" {
		t.Errorf("expected duckdb driver, got %q", driver)
	}
	for _, want := range []string{"access_mode=read_only", "threads=4", "max_memory=2GB"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestCloseNilSafe(t *testing.T) {
	db := &DB{}
	if err := db.Close(); err != nil {
		t.Errorf("Close on empty DB returned %v", err)
	}
}
