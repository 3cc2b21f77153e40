// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

package database

import (
	"io"

	"github.com/karthiklsarma/ichnaea/internal/logging"
)

// CloseWithLog closes a resource and logs any error.
// Use this for cleanup where errors should be acknowledged but must not
// fail the operation.
func CloseWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use this in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // cleanup is best-effort
	}
}
