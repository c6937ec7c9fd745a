// Package assets downloads product images after a run finishes. Failures are
// logged and counted, never fatal: the crawl result does not depend on assets.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/medline/expocrawl/internal/ratelimit"
	"github.com/medline/expocrawl/internal/retry"
	"github.com/medline/expocrawl/pkg/models"
)

// Options configures an image download pass.
type Options struct {
	OutputDir string
	// Workers bounds concurrent downloads; defaults to 5, capped at 50.
	Workers   int
	Timeout   time.Duration
	UserAgent string
	// Limiter throttles per-host request rate; nil disables.
	Limiter ratelimit.RateLimiter
	Retry   retry.Config
	// Progress draws a terminal progress bar when true.
	Progress bool
}

// Summary reports the outcome of a download pass.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Bytes     int64
}

// Fetcher streams single files to disk.
type Fetcher struct {
	client    *http.Client
	userAgent string
	limiter   ratelimit.RateLimiter
	retry     retry.Config
}

// NewFetcher creates a Fetcher with a pooled transport.
func NewFetcher(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cfg := opts.Retry
	if cfg.MaxAttempts <= 0 {
		cfg = retry.DefaultConfig()
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: opts.UserAgent,
		limiter:   opts.Limiter,
		retry:     cfg,
	}
}

// DownloadImages collects every distinct image URL in the run's records and
// fans them out to the worker pool.
func DownloadImages(ctx context.Context, run *models.CrawlRun, opts Options) Summary {
	urls := collectImageURLs(run)
	if len(urls) == 0 {
		return Summary{}
	}
	return NewFetcher(opts).DownloadBatch(ctx, urls, opts)
}

// DownloadBatch downloads the given URLs under the worker bound and returns
// the aggregate outcome.
func (f *Fetcher) DownloadBatch(ctx context.Context, urls []string, opts Options) Summary {
	workers := opts.Workers
	if workers <= 0 {
		workers = 5
	}
	if workers > 50 {
		workers = 50
	}

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.Default(int64(len(urls)), "downloading images")
	}

	results := make([]error, len(urls))
	sizes := make([]int64, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			sizes[i], results[i] = f.download(gctx, u, opts.OutputDir)
			if bar != nil {
				bar.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	sum := Summary{Total: len(urls)}
	for i, err := range results {
		if err != nil {
			sum.Failed++
			log.Warn().Str("url", urls[i]).Err(err).Msg("Image download failed")
			continue
		}
		sum.Succeeded++
		sum.Bytes += sizes[i]
	}

	log.Info().
		Int("total", sum.Total).
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Int64("bytes", sum.Bytes).
		Msg("Image downloads finished")
	return sum
}

// download fetches one file under the retry budget and streams it to disk.
func (f *Fetcher) download(ctx context.Context, fileURL, dir string) (int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, sanitizeFilename(fileURL))

	var size int64
	err := retry.Do(ctx, f.retry, func() error {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, fileURL); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("bad status: %d %s", resp.StatusCode, resp.Status)
		}

		out, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer out.Close()

		size, err = io.Copy(out, resp.Body)
		if err != nil {
			os.Remove(path)
			return fmt.Errorf("failed to write file: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Debug().Str("url", fileURL).Str("file", path).Int64("bytes", size).Msg("Download completed")
	return size, nil
}

// collectImageURLs returns every distinct record image URL in tree order.
func collectImageURLs(run *models.CrawlRun) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(u string) {
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	for _, rec := range run.Records() {
		for _, img := range rec.Images {
			add(img)
		}
		add(rec.TileImage.Src)
	}
	return out
}

// sanitizeFilename derives a safe local name from a URL, hashing the query
// string into the name so variants do not collide.
func sanitizeFilename(input string) string {
	var queryHash string
	if u, err := url.Parse(input); err == nil && u.Host != "" {
		parts := strings.Split(u.Path, "/")
		if len(parts) > 0 {
			input = parts[len(parts)-1]
		}
		if u.RawQuery != "" {
			queryHash = "_" + hashString(u.RawQuery)
		}
	}

	for _, c := range []string{"/", "\\", "..", ":", "*", "?", "\"", "<", ">", "|"} {
		input = strings.ReplaceAll(input, c, "_")
	}
	input = strings.Trim(strings.TrimSpace(input), ".")

	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	if queryHash != "" {
		input = stem + queryHash + ext
	}

	if input == "" {
		input = fmt.Sprintf("download_%d", time.Now().Unix())
	}
	if len(input) > 200 {
		input = input[:200]
	}
	return input
}

func hashString(s string) string {
	hash := 0
	for _, c := range s {
		hash = ((hash << 5) - hash) + int(c)
	}
	if hash < 0 {
		hash = -hash
	}
	return fmt.Sprintf("%08x", hash)[:8]
}
