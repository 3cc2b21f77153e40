// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

// Package geocalc converts a center point and radius into a rectangular
// latitude/longitude filter for export queries.
package geocalc

import (
	"math"
	"strconv"
)

const (
	// earthRadiusMeters is the mean earth radius used for the
	// great-circle conversion from meters to degrees.
	earthRadiusMeters = 6371000.0

	minLatDegrees = -90.0
	maxLatDegrees = 90.0
	minLonDegrees = -180.0
	maxLonDegrees = 180.0
)

// Rectangle is a latitude/longitude bounding box. Invariant: MaxLat >=
// MinLat and MaxLon >= MinLon. Rectangles are produced only by Bounds;
// all four sides are rounded to 5 decimal places (~1.1 m).
type Rectangle struct {
	MaxLat float64 `json:"max_lat"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MinLon float64 `json:"min_lon"`
}

// Bounds computes the rectangle enclosing a circle of radiusMeters around
// (lat, lon). Out-of-range centers are clamped to valid coordinates
// rather than rejected, so a malformed input can widen the filter but
// never crash the export. Regions spanning the antimeridian are not
// supported: longitudes clamp at ±180 instead of wrapping, which keeps
// the MaxLon >= MinLon invariant at the cost of truncating the box.
func Bounds(lat, lon, radiusMeters float64) Rectangle {
	lat = clamp(lat, minLatDegrees, maxLatDegrees)
	lon = clamp(lon, minLonDegrees, maxLonDegrees)

	latDelta := (radiusMeters / earthRadiusMeters) * (180.0 / math.Pi)

	// The longitude spread grows with latitude; near the poles the
	// cosine degenerates and the box covers all longitudes after
	// clamping.
	cosLat := math.Cos(lat * math.Pi / 180.0)
	if cosLat < 1e-12 {
		cosLat = 1e-12
	}
	lonDelta := latDelta / cosLat

	return Rectangle{
		MaxLat: Round5(clamp(lat+latDelta, minLatDegrees, maxLatDegrees)),
		MinLat: Round5(clamp(lat-latDelta, minLatDegrees, maxLatDegrees)),
		MaxLon: Round5(clamp(lon+lonDelta, minLonDegrees, maxLonDegrees)),
		MinLon: Round5(clamp(lon-lonDelta, minLonDegrees, maxLonDegrees)),
	}
}

// Contains reports whether (lat, lon) satisfies the four-sided inequality
// against the rectangle's rounded bounds.
func (r Rectangle) Contains(lat, lon float64) bool {
	return lat <= r.MaxLat && lat >= r.MinLat &&
		lon <= r.MaxLon && lon >= r.MinLon
}

// Predicate renders the rectangle as a SQL filter clause. The bounds are
// rounded numeric literals, so the rendered text is deterministic and
// safe to splice into a query template.
func (r Rectangle) Predicate() string {
	return "lat <= " + formatBound(r.MaxLat) +
		" and lat >= " + formatBound(r.MinLat) +
		" and lon <= " + formatBound(r.MaxLon) +
		" and lon >= " + formatBound(r.MinLon)
}

// Round5 rounds a coordinate to 5 decimal places.
func Round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
