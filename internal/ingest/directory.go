// Package ingest discovers invoice documents on the local filesystem.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileResult is the outcome of handing one discovered file to a HandleFunc.
type FileResult struct {
	Path string
	Err  string
}

type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// HandleFunc receives each matching file's path and contents.
type HandleFunc func(ctx context.Context, path string, data []byte) error

// Options controls a directory walk.
type Options struct {
	// IncludeExts overrides the allowed extensions (lowercase, without '.').
	IncludeExts []string
	SkipHidden  bool
	// MaxBytes skips larger files when positive.
	MaxBytes int64
}

// ScanDirectory walks root, filters by extension, skips hidden entries if
// requested and calls fn for each file. Per-file failures are recorded and
// the walk continues; a cancelled ctx stops it.
func ScanDirectory(ctx context.Context, root string, opts Options, fn HandleFunc) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	allowed := AllowedExt
	if len(opts.IncludeExts) > 0 {
		exts := map[string]struct{}{}
		for _, e := range opts.IncludeExts {
			e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
			if e != "" {
				exts[e] = struct{}{}
			}
		}
		allowed = func(ext string) bool {
			_, ok := exts[strings.ToLower(strings.TrimPrefix(ext, "."))]
			return ok
		}
	}

	var results []FileResult
	var stats DirStats

	fail := func(path string, err error) {
		results = append(results, FileResult{Path: path, Err: err.Error()})
		stats.Failed++
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			fail(path, walkErr)
			return nil
		}
		if opts.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !allowed(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		if opts.MaxBytes > 0 {
			if info, err := d.Info(); err == nil && info.Size() > opts.MaxBytes {
				fail(path, fmt.Errorf("file exceeds %d bytes", opts.MaxBytes))
				return nil
			}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			fail(path, err)
			return nil
		}
		if err := fn(ctx, path, data); err != nil {
			fail(path, err)
			return nil
		}
		results = append(results, FileResult{Path: path})
		stats.Succeeded++
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
