// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/karthiklsarma/ichnaea/internal/config"
	"github.com/karthiklsarma/ichnaea/internal/export"
	"github.com/karthiklsarma/ichnaea/internal/logging"
)

var (
	// Flag values; coordinate presence is tracked via Flags().Changed so
	// an explicit zero is distinguishable from an unset flag.
	cfgFile  string
	datatype string
	filename string
	lat      float64
	lon      float64
	radius   float64
	manifest bool

	// exitCode is set by run and returned by Execute.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "location-export",
	Short: "Dump geolocation observation data to a compressed file",
	Long: `location-export streams sharded geolocation observation tables (Bluetooth,
cell, OpenCellID and Wi-Fi datasets) into a single gzip-compressed CSV
file, one page at a time, without loading a full table into memory.

An optional geographic filter restricts the export to a bounding box
around a center point. All three of --lat, --lon and --radius must be
given together; a partial set is treated as "no filter" rather than an
error. The destination file must not already exist: remove the output of
a failed or unwanted run before retrying.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		exitCode = run(cmd)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path (default: ICHNAEA_CFG or well-known locations)")
	rootCmd.Flags().StringVar(&datatype, "datatype", "", "type of the data to export: blue, cell, ocid or wifi")
	rootCmd.Flags().StringVar(&filename, "filename", "", "path to the csv.gz export file")
	rootCmd.Flags().Float64Var(&lat, "lat", 0, "center latitude of the desired area")
	rootCmd.Flags().Float64Var(&lon, "lon", 0, "center longitude of the desired area")
	rootCmd.Flags().Float64Var(&radius, "radius", 0, "radius of the desired area in meters")
	rootCmd.Flags().BoolVar(&manifest, "manifest", false, "write a .manifest.json sidecar next to the export")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

// run loads configuration, initializes logging and hands off to the
// export driver.
func run(cmd *cobra.Command) int {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Println(err)
		return 1
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	req := export.Request{
		Datatype: datatype,
		Filename: filename,
		Manifest: manifest,
	}
	if cmd.Flags().Changed("lat") {
		req.Lat = &lat
	}
	if cmd.Flags().Changed("lon") {
		req.Lon = &lon
	}
	if cmd.Flags().Changed("radius") {
		req.Radius = &radius
	}

	return export.Run(context.Background(), cfg, req)
}
