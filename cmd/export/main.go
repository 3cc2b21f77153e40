// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

// location-export dumps sharded geolocation observation tables to a
// single gzip-compressed CSV file, optionally restricted to a
// rectangular region around a center point.
//
// Usage:
//
//	# Export every Wi-Fi observation
//	location-export --datatype wifi --filename wifi.csv.gz
//
//	# Export cell observations within 50 km of central London
//	location-export --datatype cell --filename london.csv.gz \
//	    --lat 51.5 --lon -0.1 --radius 50000
//
// The data backend is configured via ICHNAEA_* environment variables or
// a YAML config file (see --config).
package main

import "os"

func main() {
	os.Exit(Execute())
}
