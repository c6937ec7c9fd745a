package crawler

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/medline/expocrawl/internal/render"
	"github.com/medline/expocrawl/internal/selector"
	"github.com/medline/expocrawl/internal/taskctx"
	urlutil "github.com/medline/expocrawl/internal/utils/url"
	"github.com/medline/expocrawl/pkg/models"
)

// crawlTiles walks one entry's listing pages and collects its product tiles,
// following pagination the same way the index stage does. Tiles whose link
// does not validate against the profile's product URL pattern are kept as
// tombstones so the tree records that a product existed there.
func (c *Crawler) crawlTiles(ctx context.Context, entry *models.IndexEntry) error {
	tc := taskctx.FromContext(ctx)
	logger := log.With().Str("task_id", tc.TaskID).Str("entry", entry.Title).Logger()

	visited := NewVisitedSet()
	visited.Add(entry.URL)
	queue := []string{entry.URL}

	for pageNum := 0; len(queue) > 0; pageNum++ {
		pageURL := queue[0]
		queue = queue[1:]

		next, err := c.tilePage(ctx, entry, pageURL)
		if err != nil {
			if pageNum == 0 {
				entry.Failure = failureFor("tiles", err)
				return err
			}
			entry.Warnings = append(entry.Warnings, "pagination page failed: "+pageURL)
			logger.Warn().Err(err).Str("url", pageURL).Msg("Continuation page failed")
			continue
		}

		for _, link := range next {
			if urlutil.SameResource(link, pageURL) {
				continue
			}
			if visited.Add(link) {
				queue = append(queue, link)
			}
		}
	}

	logger.Debug().
		Int("tiles", len(entry.Tiles)).
		Int("pages", visited.Len()).
		Msg("Tile traversal complete")
	return nil
}

// tilePage extracts all tiles from one listing page.
func (c *Crawler) tilePage(ctx context.Context, entry *models.IndexEntry, pageURL string) ([]string, error) {
	sess, err := c.open(ctx, pageURL, c.profile.Tiles.Wait, render.WaitAttached)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	page, err := sess.Page(ctx)
	if err != nil {
		return nil, err
	}

	items, err := selector.Resolve("product tiles", c.profile.Tiles.Items, page.Root())
	if err != nil {
		return nil, err
	}

	tc := taskctx.FromContext(ctx)
	logger := log.With().Str("task_id", tc.TaskID).Str("url", pageURL).Logger()

	items.Each(func(i int, item *goquery.Selection) {
		tile := c.extractTile(item, pageURL)
		if tile == nil {
			logger.Debug().Int("index", i).Msg("Skipping placeholder tile")
			return
		}
		entry.AddTile(tile)
	})

	return paginationLinks(page, c.profile.Tiles.Pagination, pageURL), nil
}

// extractTile builds one TileSummary from its listing markup. A nil return
// means a placeholder tile that should not enter the tree at all; a tile with
// no valid detail URL is returned as a tombstone.
func (c *Crawler) extractTile(item *goquery.Selection, pageURL string) *models.TileSummary {
	tile := &models.TileSummary{}

	if title, err := selector.First("tile title", c.profile.Tiles.Title, item); err == nil {
		tile.Title = text(title)
	}
	// Unhydrated template tiles leak their placeholders into the markup.
	if strings.Contains(tile.Title, "{{") {
		return nil
	}

	if desc, err := selector.First("tile description", c.profile.Tiles.Description, item); err == nil {
		tile.Description = text(desc)
	}
	if feats, err := selector.Resolve("tile features", c.profile.Tiles.Features, item); err == nil {
		feats.Each(func(_ int, f *goquery.Selection) {
			if v := text(f); v != "" {
				tile.Features = append(tile.Features, v)
			}
		})
	}
	if img, err := selector.First("tile image", c.profile.Tiles.Image, item); err == nil {
		tile.Image = imageMeta(img, pageURL)
	}
	if logo, err := selector.First("manufacturer logo", c.profile.Tiles.Logo, item); err == nil {
		tile.ManufacturerLogo = imageMeta(logo, pageURL)
	}
	if _, err := selector.First("video badge", c.profile.Tiles.VideoBadge, item); err == nil {
		tile.HasVideo = true
	}

	link, err := selector.First("tile link", c.profile.Tiles.Link, item)
	if err != nil {
		tile.Failure = models.NewFailure("tiles", models.FailureNoDetailURL, "no product link in tile")
		return tile
	}
	href, _ := link.Attr("href")
	target := urlutil.ResolveURL(pageURL, href)
	if !c.profile.MatchProductURL(target) {
		tile.Failure = models.NewFailure("tiles", models.FailureNoDetailURL,
			"product link does not match the expected URL pattern: "+target)
		return tile
	}
	tile.DetailURL = target
	return tile
}
