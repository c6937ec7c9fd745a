// Package crawler implements the four-stage crawl pipeline: section discovery
// on the entry page, subcategory index traversal, product tile collection and
// product detail extraction. Stage boundaries are join points; tasks within a
// stage fan out under that stage's permit limiter with no ordering guarantee
// among siblings.
package crawler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/medline/expocrawl/internal/crawlerr"
	"github.com/medline/expocrawl/internal/profile"
	"github.com/medline/expocrawl/internal/ratelimit"
	"github.com/medline/expocrawl/internal/render"
	"github.com/medline/expocrawl/internal/retry"
	"github.com/medline/expocrawl/internal/robots"
	"github.com/medline/expocrawl/internal/selector"
	"github.com/medline/expocrawl/internal/taskctx"
	"github.com/medline/expocrawl/pkg/models"
)

// Options configures a Crawler.
type Options struct {
	Profile *profile.Profile
	Engine  render.Engine
	// Gate is consulted before every navigation; nil disables the robots check.
	Gate *robots.Gate
	// Courtesy is the bounded random inter-request delay; nil disables it.
	Courtesy *ratelimit.Courtesy
	Retry    retry.Config

	// Per-stage permit budgets. Stage 3 should be the smallest: each permit
	// holds a full rendering context on the heaviest pages.
	Stage1Concurrency int
	Stage2Concurrency int
	Stage3Concurrency int

	NavigationTimeout time.Duration
}

// Crawler drives one run of the pipeline.
type Crawler struct {
	profile    *profile.Profile
	engine     render.Engine
	gate       *robots.Gate
	courtesy   *ratelimit.Courtesy
	retry      retry.Config
	limiters   [3]*Limiter
	navTimeout time.Duration
}

// New creates a Crawler. Zero concurrency values fall back to 4/4/2.
func New(opts Options) (*Crawler, error) {
	if opts.Profile == nil {
		return nil, fmt.Errorf("crawler requires a site profile")
	}
	if err := opts.Profile.Validate(); err != nil {
		return nil, err
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("crawler requires a render engine")
	}

	s1, s2, s3 := opts.Stage1Concurrency, opts.Stage2Concurrency, opts.Stage3Concurrency
	if s1 <= 0 {
		s1 = 4
	}
	if s2 <= 0 {
		s2 = 4
	}
	if s3 <= 0 {
		s3 = 2
	}

	navTimeout := opts.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 45 * time.Second
	}

	cfg := opts.Retry
	if cfg.MaxAttempts <= 0 {
		cfg = retry.DefaultConfig()
	}

	return &Crawler{
		profile:    opts.Profile,
		engine:     opts.Engine,
		gate:       opts.Gate,
		courtesy:   opts.Courtesy,
		retry:      cfg,
		limiters:   [3]*Limiter{NewLimiter(s1), NewLimiter(s2), NewLimiter(s3)},
		navTimeout: navTimeout,
	}, nil
}

// StagePeaks returns the observed permit peaks per fan-out stage.
func (c *Crawler) StagePeaks() [3]int {
	return [3]int{c.limiters[0].Peak(), c.limiters[1].Peak(), c.limiters[2].Peak()}
}

// Run executes the full pipeline from the entry page and returns the
// aggregated tree. Localized failures are recorded as markers on their nodes;
// only fatal errors abort the run, and even then the partial tree built so
// far is returned alongside the error.
func (c *Crawler) Run(ctx context.Context, startURL string) (*models.CrawlRun, error) {
	run := models.NewRun(newRunID(), startURL)

	log.Info().
		Str("run_id", run.ID).
		Str("start_url", startURL).
		Str("engine", c.engine.Name()).
		Msg("Crawl started")

	err := c.runStages(ctx, run)
	run.Finalize(err != nil)

	totals := run.Totals()
	log.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("sections", totals.Sections).
		Int("subcategories", totals.Subcategories).
		Int("entries", totals.Entries).
		Int("tiles", totals.Tiles).
		Int("records", totals.Records).
		Int("failures", totals.Failures).
		Dur("elapsed", run.FinishedAt.Sub(run.StartedAt)).
		Msg("Crawl finished")

	if err != nil {
		return run, err
	}
	return run, nil
}

func (c *Crawler) runStages(ctx context.Context, run *models.CrawlRun) error {
	// Stage 0: a single task discovers the section forest.
	if err := c.crawlSections(taskctx.WithTask(ctx, "sections"), run); err != nil {
		return fmt.Errorf("section discovery failed: %w", err)
	}

	// Stage 1: one task per subcategory.
	var subs []*models.Subcategory
	for _, sec := range run.Sections {
		subs = append(subs, sec.Subcategories...)
	}
	if err := dispatch(ctx, "index", c.limiters[0], subs, c.crawlIndex); err != nil {
		return err
	}

	// Stage 2: one task per index entry.
	var entries []*models.IndexEntry
	for _, sub := range subs {
		entries = append(entries, sub.Entries...)
	}
	if err := dispatch(ctx, "tiles", c.limiters[1], entries, c.crawlTiles); err != nil {
		return err
	}

	// Stage 3: one task per tile holding a validated detail URL.
	var tiles []*models.TileSummary
	for _, e := range entries {
		for _, t := range e.Tiles {
			if t.DetailURL != "" && t.Failure == nil {
				tiles = append(tiles, t)
			}
		}
	}
	return dispatch(ctx, "detail", c.limiters[2], tiles, c.crawlDetail)
}

// dispatch fans tasks out under the stage limiter and joins them. A task owns
// exactly the node it receives and records localized failures there itself;
// only fatal errors and cancellation propagate and collapse the group.
func dispatch[T any](ctx context.Context, stage string, lim *Limiter, items []T, fn func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, item := range items {
		item := item
		g.Go(func() error {
			tctx := taskctx.WithTask(gctx, stage)
			tc := taskctx.FromContext(tctx)
			logger := log.With().Str("task_id", tc.TaskID).Str("stage", stage).Logger()

			logger.Debug().Msg("Task pending")
			if err := lim.Acquire(gctx); err != nil {
				return err
			}
			defer lim.Release()
			logger.Debug().Msg("Task dispatched")

			err := fn(tctx, item)
			switch {
			case err == nil:
				logger.Debug().Dur("elapsed", time.Since(tc.StartTime)).Msg("Task succeeded")
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return err
			case crawlerr.IsFatal(err):
				logger.Error().Err(err).Msg("Task failed terminally, aborting run")
				return taskctx.NewTaskError(tctx, err)
			default:
				// Recorded as a failure marker on the task's own node.
				logger.Warn().Err(err).Msg("Task failed")
			}
			return nil
		})
	}

	return g.Wait()
}

// open performs one gated, throttled, retried navigation. The caller owns the
// returned session and must Close it on every exit path.
func (c *Crawler) open(ctx context.Context, url, waitSel string, state render.WaitState) (render.Session, error) {
	if c.gate != nil {
		allowed, err := c.gate.Allowed(ctx, url)
		if err == nil && !allowed {
			return nil, crawlerr.RobotsDenied(fmt.Sprintf("robots.txt disallows %s", url))
		}
	}

	if err := c.courtesy.Wait(ctx); err != nil {
		return nil, err
	}

	var sess render.Session
	err := retry.Do(ctx, c.retry, func() error {
		s, err := c.engine.Open(ctx, url, render.OpenOptions{
			WaitSelector: waitSel,
			WaitState:    state,
			Timeout:      c.navTimeout,
		})
		if err != nil {
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// failureFor maps a task error to the marker recorded on its node.
func failureFor(stage string, err error) *models.Failure {
	kind := models.FailureRetryExhausted

	var nf *selector.NotFoundError
	if errors.As(err, &nf) {
		kind = models.FailureElementNotFound
	} else {
		switch crawlerr.KindOf(err) {
		case crawlerr.KindNotFound:
			kind = models.FailureElementNotFound
		case crawlerr.KindIdentityMismatch:
			kind = models.FailureIdentityMismatch
		case crawlerr.KindRobotsDenied:
			kind = models.FailureRobotsDenied
		case crawlerr.KindHTTPError:
			kind = models.FailureHTTPError
		}
	}

	return models.NewFailure(stage, kind, err.Error())
}

func newRunID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return time.Now().UTC().Format("20060102-150405") + "-" + hex.EncodeToString(b)
}
