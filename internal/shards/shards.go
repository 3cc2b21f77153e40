// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

// Package shards maps logical observation datasets to their physical
// table partitions and owns the per-row export serialization.
//
// Wi-Fi and Bluetooth observations are sharded 16 ways by the first hex
// digit of the station MAC (wifi_shard_0 .. wifi_shard_f); cell
// observations are partitioned by radio type (cell_gsm, cell_wcdma,
// cell_lte), with a parallel set of tables for the OpenCellID-sourced
// data. Shard handles are built fresh for every export invocation and
// are read-only.
package shards

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a logical observation dataset.
type Kind string

// The recognized dataset kinds. Anything else is a caller error.
const (
	KindBlue Kind = "blue"
	KindCell Kind = "cell"
	KindOCID Kind = "ocid"
	KindWifi Kind = "wifi"
)

// ErrUnknownKind is returned for datatype values outside the fixed set.
var ErrUnknownKind = errors.New("unknown data type")

// ParseKind validates a datatype string from the CLI.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBlue, KindCell, KindOCID, KindWifi:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

const (
	stationHeader = "mac,lat,lon,radius,samples,created,modified"
	cellHeader    = "radio,mcc,net,area,cell,unit,lat,lon,radius,samples,created,modified"
)

// rowScanFunc reads the current row from a result set and returns its
// serialized export line.
type rowScanFunc func(rows *sql.Rows) (string, error)

// Shard is the handle for one physical table partition. It exposes the
// scan query template and the row serializer the scanner needs; it never
// touches the database itself.
type Shard struct {
	table   string
	columns []string
	orderBy string
	scan    rowScanFunc
}

// Table returns the physical table name.
func (s *Shard) Table() string {
	return s.table
}

// ScanQuery builds the windowed scan statement for this shard. The base
// statement is ordered; an optional predicate is spliced in immediately
// before the ORDER BY clause so the filter never disturbs the shard's
// row order. LIMIT and OFFSET bind as the two positional parameters.
func (s *Shard) ScanQuery(where string) string {
	stmt := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT ? OFFSET ?",
		strings.Join(s.columns, ", "), s.table, s.orderBy)
	if where != "" {
		stmt = strings.Replace(stmt, " ORDER BY ", " WHERE "+where+" ORDER BY ", 1)
	}
	return stmt
}

// ScanRow serializes the current row of the result set to one CSV line.
func (s *Shard) ScanRow(rows *sql.Rows) (string, error) {
	return s.scan(rows)
}

// Source is the resolved shard set for one dataset kind: the export
// header line plus the ordered shard handles.
type Source struct {
	kind   Kind
	header string
	shards []*Shard
}

// Kind returns the dataset kind this source was resolved for.
func (s *Source) Kind() Kind {
	return s.kind
}

// Header returns the dataset's export header line, written once at the
// top of the output file.
func (s *Source) Header() string {
	return s.header
}

// Shards returns the shard handles in their fixed export order.
func (s *Source) Shards() []*Shard {
	return s.shards
}

// ForKind resolves a dataset kind to its shard source. Handles are
// constructed fresh on every call.
func ForKind(k Kind) (*Source, error) {
	switch k {
	case KindWifi:
		return &Source{kind: k, header: stationHeader, shards: stationShards("wifi")}, nil
	case KindBlue:
		return &Source{kind: k, header: stationHeader, shards: stationShards("blue")}, nil
	case KindCell:
		return &Source{kind: k, header: cellHeader, shards: cellShards("cell")}, nil
	case KindOCID:
		return &Source{kind: k, header: cellHeader, shards: cellShards("cell_ocid")}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
}

var stationColumns = []string{"mac", "lat", "lon", "radius", "samples", "created", "modified"}

// stationShards builds the 16 hex-suffixed shard handles for MAC-keyed
// datasets (wifi, blue).
func stationShards(prefix string) []*Shard {
	shards := make([]*Shard, 0, 16)
	for _, c := range "0123456789abcdef" {
		shards = append(shards, &Shard{
			table:   fmt.Sprintf("%s_shard_%c", prefix, c),
			columns: stationColumns,
			orderBy: "mac",
			scan:    scanStationRow,
		})
	}
	return shards
}

var cellColumns = []string{"radio", "mcc", "net", "area", "cell", "unit", "lat", "lon", "radius", "samples", "created", "modified"}

// cellShards builds the per-radio shard handles for cell datasets.
func cellShards(prefix string) []*Shard {
	radios := []string{"gsm", "wcdma", "lte"}
	shards := make([]*Shard, 0, len(radios))
	for _, radio := range radios {
		shards = append(shards, &Shard{
			table:   prefix + "_" + radio,
			columns: cellColumns,
			orderBy: "radio, mcc, net, area, cell",
			scan:    scanCellRow,
		})
	}
	return shards
}

// scanStationRow serializes one wifi/blue observation row.
func scanStationRow(rows *sql.Rows) (string, error) {
	var (
		mac                        string
		lat, lon, radius           float64
		samples, created, modified int64
	)
	if err := rows.Scan(&mac, &lat, &lon, &radius, &samples, &created, &modified); err != nil {
		return "", fmt.Errorf("scan station row: %w", err)
	}
	fields := []string{
		mac,
		formatCoord(lat),
		formatCoord(lon),
		formatCoord(radius),
		strconv.FormatInt(samples, 10),
		strconv.FormatInt(created, 10),
		strconv.FormatInt(modified, 10),
	}
	return strings.Join(fields, ","), nil
}

// scanCellRow serializes one cell observation row. The unit column is
// nullable and serializes to the empty string when NULL.
func scanCellRow(rows *sql.Rows) (string, error) {
	var (
		radio                      string
		mcc, net, area, cell       int64
		unit                       sql.NullInt64
		lat, lon, radius           float64
		samples, created, modified int64
	)
	if err := rows.Scan(&radio, &mcc, &net, &area, &cell, &unit,
		&lat, &lon, &radius, &samples, &created, &modified); err != nil {
		return "", fmt.Errorf("scan cell row: %w", err)
	}
	unitField := ""
	if unit.Valid {
		unitField = strconv.FormatInt(unit.Int64, 10)
	}
	fields := []string{
		radio,
		strconv.FormatInt(mcc, 10),
		strconv.FormatInt(net, 10),
		strconv.FormatInt(area, 10),
		strconv.FormatInt(cell, 10),
		unitField,
		formatCoord(lat),
		formatCoord(lon),
		formatCoord(radius),
		strconv.FormatInt(samples, 10),
		strconv.FormatInt(created, 10),
		strconv.FormatInt(modified, 10),
	}
	return strings.Join(fields, ","), nil
}

// formatCoord renders a float with the minimal round-trip notation so
// repeated exports of unchanged data are byte-identical.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
