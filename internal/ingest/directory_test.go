package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "%PDF-a")
	writeFile(t, filepath.Join(root, "sub", "B.PDF"), "%PDF-b")
	writeFile(t, filepath.Join(root, "notes.txt"), "skip")
	writeFile(t, filepath.Join(root, ".hidden", "c.pdf"), "%PDF-c")
	writeFile(t, filepath.Join(root, "bad.pdf"), "%PDF-bad")

	var seen []string
	results, stats, err := ScanDirectory(context.Background(), root, Options{SkipHidden: true},
		func(_ context.Context, path string, data []byte) error {
			if filepath.Base(path) == "bad.pdf" {
				return errors.New("boom")
			}
			seen = append(seen, string(data))
			return nil
		})
	if err != nil {
		t.Fatalf("ScanDirectory() error = %v", err)
	}

	sort.Strings(seen)
	if diff := cmp.Diff([]string{"%PDF-a", "%PDF-b"}, seen); diff != "" {
		t.Errorf("handled files (-want +got):\n%s", diff)
	}
	if stats.Matched != 3 || stats.Succeeded != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	var failed []string
	for _, r := range results {
		if r.Err != "" {
			failed = append(failed, filepath.Base(r.Path))
		}
	}
	if diff := cmp.Diff([]string{"bad.pdf"}, failed); diff != "" {
		t.Errorf("failed (-want +got):\n%s", diff)
	}
}

func TestScanDirectory_Options(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "small.pdf"), "%PDF")
	writeFile(t, filepath.Join(root, "large.pdf"), "%PDF-0123456789")
	writeFile(t, filepath.Join(root, "scan.png"), "png")

	count := 0
	_, stats, err := ScanDirectory(context.Background(), root, Options{IncludeExts: []string{".PDF"}, MaxBytes: 8},
		func(context.Context, string, []byte) error { count++; return nil })
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 || stats.Failed != 1 || stats.Matched != 2 {
		t.Errorf("count = %d, stats = %+v", count, stats)
	}
}

func TestScanDirectory_Errors(t *testing.T) {
	if _, _, err := ScanDirectory(context.Background(), " ", Options{}, nil); err == nil {
		t.Error("expected error for empty root")
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "%PDF")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := ScanDirectory(ctx, root, Options{}, func(context.Context, string, []byte) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
