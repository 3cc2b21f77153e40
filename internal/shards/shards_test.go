// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

package shards

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"blue", "cell", "ocid", "wifi"} {
		kind, err := ParseKind(valid)
		if err != nil {
			t.Errorf("ParseKind(%q) failed: %v", valid, err)
		}
		if string(kind) != valid {
			t.Errorf("ParseKind(%q) = %q", valid, kind)
		}
	}

	for _, invalid := range []string{"", "bogus", "WIFI", "cells"} {
		if _, err := ParseKind(invalid); err == nil {
			t.Errorf("ParseKind(%q) should fail", invalid)
		}
	}
}

func TestForKindShardSets(t *testing.T) {
	tests := []struct {
		kind       Kind
		header     string
		count      int
		firstTable string
		lastTable  string
	}{
		{KindWifi, stationHeader, 16, "wifi_shard_0", "wifi_shard_f"},
		{KindBlue, stationHeader, 16, "blue_shard_0", "blue_shard_f"},
		{KindCell, cellHeader, 3, "cell_gsm", "cell_lte"},
		{KindOCID, cellHeader, 3, "cell_ocid_gsm", "cell_ocid_lte"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			source, err := ForKind(tt.kind)
			if err != nil {
				t.Fatalf("ForKind failed: %v", err)
			}
			if source.Kind() != tt.kind {
				t.Errorf("Kind() = %q, want %q", source.Kind(), tt.kind)
			}
			if source.Header() != tt.header {
				t.Errorf("Header() = %q, want %q", source.Header(), tt.header)
			}
			shards := source.Shards()
			if len(shards) != tt.count {
				t.Fatalf("expected %d shards, got %d", tt.count, len(shards))
			}
			if shards[0].Table() != tt.firstTable {
				t.Errorf("first shard = %q, want %q", shards[0].Table(), tt.firstTable)
			}
			if shards[len(shards)-1].Table() != tt.lastTable {
				t.Errorf("last shard = %q, want %q", shards[len(shards)-1].Table(), tt.lastTable)
			}
		})
	}
}

func TestForKindRejectsUnknown(t *testing.T) {
	if _, err := ForKind(Kind("bogus")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestScanQueryWithoutPredicate(t *testing.T) {
	source, _ := ForKind(KindWifi)
	shard := source.Shards()[0]

	stmt := shard.ScanQuery("")
	want := "SELECT mac, lat, lon, radius, samples, created, modified FROM wifi_shard_0 ORDER BY mac LIMIT ? OFFSET ?"
	if stmt != want {
		t.Errorf("ScanQuery(\"\") = %q, want %q", stmt, want)
	}
}

func TestScanQueryInjectsPredicateBeforeOrderBy(t *testing.T) {
	source, _ := ForKind(KindCell)
	shard := source.Shards()[0]

	where := "lat <= 52 and lat >= 51 and lon <= 1 and lon >= -1"
	stmt := shard.ScanQuery(where)

	whereIdx := strings.Index(stmt, " WHERE ")
	orderIdx := strings.Index(stmt, " ORDER BY ")
	if whereIdx < 0 || orderIdx < 0 {
		t.Fatalf("missing WHERE or ORDER BY in %q", stmt)
	}
	if whereIdx > orderIdx {
		t.Errorf("predicate must precede the ordering clause: %q", stmt)
	}
	if !strings.HasSuffix(stmt, "LIMIT ? OFFSET ?") {
		t.Errorf("window parameters must close the statement: %q", stmt)
	}
	if !strings.Contains(stmt, " WHERE "+where+" ORDER BY ") {
		t.Errorf("predicate not spliced verbatim: %q", stmt)
	}
}

// openTestDB creates an in-memory SQLite database for serialization
// tests.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestScanStationRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `CREATE TABLE wifi_shard_0 (
		mac TEXT, lat REAL, lon REAL, radius REAL,
		samples INTEGER, created INTEGER, modified INTEGER)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO wifi_shard_0 VALUES ('0017c5cd1e2a', 51.5, -0.1, 10.0, 5, 1700000000, 1700003600)`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	source, _ := ForKind(KindWifi)
	shard := source.Shards()[0]

	rows, err := db.QueryContext(ctx, shard.ScanQuery(""), 10, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		t.Fatal("expected one row")
	}
	line, err := shard.ScanRow(rows)
	if err != nil {
		t.Fatalf("ScanRow: %v", err)
	}

	want := "0017c5cd1e2a,51.5,-0.1,10,5,1700000000,1700003600"
	if line != want {
		t.Errorf("serialized row = %q, want %q", line, want)
	}
}

func TestScanCellRowNullUnit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `CREATE TABLE cell_gsm (
		radio TEXT, mcc INTEGER, net INTEGER, area INTEGER, cell INTEGER,
		unit INTEGER, lat REAL, lon REAL, radius REAL,
		samples INTEGER, created INTEGER, modified INTEGER)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO cell_gsm VALUES ('gsm', 234, 30, 1234, 56789, NULL, 51.5, -0.1, 2500.0, 12, 1700000000, 1700003600)`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	source, _ := ForKind(KindCell)
	shard := source.Shards()[0]

	rows, err := db.QueryContext(ctx, shard.ScanQuery(""), 10, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		t.Fatal("expected one row")
	}
	line, err := shard.ScanRow(rows)
	if err != nil {
		t.Fatalf("ScanRow: %v", err)
	}

	want := "gsm,234,30,1234,56789,,51.5,-0.1,2500,12,1700000000,1700003600"
	if line != want {
		t.Errorf("serialized row = %q, want %q", line, want)
	}
}

func TestFormatCoord(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{51.5, "51.5"},
		{-0.1, "-0.1"},
		{10, "10"},
		{51.50899, "51.50899"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := formatCoord(tt.input); got != tt.want {
			t.Errorf("formatCoord(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
