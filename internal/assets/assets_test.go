package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/medline/expocrawl/internal/retry"
	"github.com/medline/expocrawl/pkg/models"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestDownloadBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "broken.jpg") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("image bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	opts := Options{
		OutputDir: dir,
		Workers:   3,
		Timeout:   5 * time.Second,
		Retry:     retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond, Sleep: noSleep},
	}

	urls := []string{
		server.URL + "/img/a.jpg",
		server.URL + "/img/b.jpg",
		server.URL + "/img/broken.jpg",
	}

	sum := NewFetcher(opts).DownloadBatch(context.Background(), urls, opts)
	if sum.Total != 3 || sum.Succeeded != 2 || sum.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
	if err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if string(data) != "image bytes" {
		t.Errorf("content mismatch: %q", data)
	}
}

func TestDownloadImagesDeduplicates(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("x"))
	}))
	defer server.Close()

	run := models.NewRun("t", "https://site.test/")
	sec := run.AddSection("S")
	sub := sec.AddSubcategory("C", "https://site.test/c")
	entry := &models.IndexEntry{URL: "https://site.test/l"}
	sub.AddEntry(entry)
	for i := 0; i < 2; i++ {
		tile := &models.TileSummary{DetailURL: "https://site.test/p"}
		tile.Record = models.MergeRecord(tile, &models.ProductDetail{
			Images: []string{server.URL + "/shared.jpg"},
		})
		entry.AddTile(tile)
	}

	opts := Options{
		OutputDir: t.TempDir(),
		Timeout:   5 * time.Second,
		Retry:     retry.Config{MaxAttempts: 1, Sleep: noSleep},
	}
	sum := DownloadImages(context.Background(), run, opts)
	if sum.Total != 1 || sum.Succeeded != 1 {
		t.Fatalf("expected a single deduplicated download, got %+v", sum)
	}
	if hits.Load() != 1 {
		t.Errorf("expected one request, got %d", hits.Load())
	}
}

func TestSanitizeFilenameSecurity(t *testing.T) {
	dangerous := []string{
		"../../etc/passwd",
		"/etc/shadow",
		"file:with:colons",
	}

	for _, input := range dangerous {
		t.Run(input, func(t *testing.T) {
			result := sanitizeFilename(input)
			if strings.Contains(result, "/") || strings.Contains(result, "\\") {
				t.Errorf("sanitized filename contains path separator: %q", result)
			}
			if strings.Contains(result, "..") {
				t.Errorf("sanitized filename contains '..': %q", result)
			}
		})
	}
}

func TestSanitizeFilenameQueryVariants(t *testing.T) {
	a := sanitizeFilename("https://site.test/img/p.jpg?size=small")
	b := sanitizeFilename("https://site.test/img/p.jpg?size=large")
	if a == b {
		t.Errorf("query variants must not collide: %q", a)
	}
	if ext := filepath.Ext(a); ext != ".jpg" {
		t.Errorf("extension lost: %q", a)
	}
}
