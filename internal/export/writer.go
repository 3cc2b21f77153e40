// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

package export

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrExists is returned when the destination path already names a
// regular file. The exporter never overwrites: a failed or interrupted
// run must be removed explicitly before retrying.
var ErrExists = errors.New("file already exists")

// ResolvePath expands a leading ~ to the user's home directory and
// returns the absolute destination path. The resolved path is the one
// checked for existence.
func ResolvePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty destination path")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

// Writer owns the destination file and the gzip stream layered on it.
// Bytes are compressed as they are produced; a SHA-256 of the compressed
// stream is accumulated alongside for the export manifest. Close releases
// the writers in reverse order so even an aborted run leaves a
// syntactically valid (if truncated) gzip stream on disk.
type Writer struct {
	path    string
	gz      *gzip.Writer
	hash    hash.Hash
	closers []io.Closer
}

// NewWriter opens the destination for a fresh export. It fails with
// ErrExists when path already names a regular file; O_EXCL backs the
// check so a concurrent create also fails rather than truncating.
func NewWriter(path string, compressionLevel int) (*Writer, error) {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrExists, path)
	}

	//nolint:gosec // G304: path is the operator-supplied destination
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrExists, path)
		}
		return nil, fmt.Errorf("create export file: %w", err)
	}

	sum := sha256.New()
	gz, err := gzip.NewWriterLevel(io.MultiWriter(file, sum), compressionLevel)
	if err != nil {
		_ = file.Close() // best-effort cleanup, the level error is the failure
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}

	return &Writer{
		path: path,
		gz:   gz,
		hash: sum,
		// Closed in reverse order: gzip footer first, then the file.
		closers: []io.Closer{file, gz},
	}, nil
}

// WriteString appends s to the compressed stream.
func (w *Writer) WriteString(s string) error {
	if _, err := io.WriteString(w.gz, s); err != nil {
		return fmt.Errorf("write export data: %w", err)
	}
	return nil
}

// Close flushes and releases the gzip stream and the file descriptor,
// returning the first error encountered. It must run on every exit path.
func (w *Writer) Close() error {
	var firstErr error
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.closers = nil
	return firstErr
}

// Path returns the resolved destination path.
func (w *Writer) Path() string {
	return w.path
}

// Checksum returns the hex SHA-256 of the compressed bytes written so
// far. Meaningful only after Close has flushed the gzip footer.
func (w *Writer) Checksum() string {
	return hex.EncodeToString(w.hash.Sum(nil))
}
