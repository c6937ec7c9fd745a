package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/medline/expocrawl/internal/render"
	"github.com/medline/expocrawl/internal/selector"
	"github.com/medline/expocrawl/internal/taskctx"
	urlutil "github.com/medline/expocrawl/internal/utils/url"
	"github.com/medline/expocrawl/pkg/models"
)

// crawlSections fetches the entry page once and builds the section forest:
// one Section per menu group, one Subcategory per linked category beneath it.
// A failure here aborts the run; there is nothing to crawl without sections.
func (c *Crawler) crawlSections(ctx context.Context, run *models.CrawlRun) error {
	tc := taskctx.FromContext(ctx)
	logger := log.With().Str("task_id", tc.TaskID).Str("url", run.StartURL).Logger()

	sess, err := c.open(ctx, run.StartURL, c.profile.Sections.Wait, render.WaitAttached)
	if err != nil {
		return err
	}
	defer sess.Close()

	// Visibility is advisory: the menu markup is attached and parseable even
	// when a cookie banner keeps it hidden.
	if vis := c.profile.Sections.Visible; vis != "" {
		if err := sess.WaitFor(ctx, vis, render.WaitVisible, 5*time.Second); err != nil {
			logger.Warn().Str("selector", vis).Msg("Section menu not visible, continuing")
		}
	}

	page, err := sess.Page(ctx)
	if err != nil {
		return err
	}

	items, err := selector.Resolve("section items", c.profile.Sections.Items, page.Root())
	if err != nil {
		return err
	}

	items.Each(func(i int, item *goquery.Selection) {
		label, err := selector.First("section label", c.profile.Sections.Label, item)
		if err != nil {
			logger.Warn().Int("index", i).Msg("Section without a resolvable label, skipping")
			return
		}
		name := text(label)
		if name == "" {
			logger.Warn().Int("index", i).Msg("Section with an empty label, skipping")
			return
		}

		sec := run.AddSection(name)

		links, err := selector.Resolve("subcategory links", c.profile.Sections.Subcategories, item)
		if err != nil {
			logger.Warn().Str("section", name).Msg("Section has no subcategory links")
			return
		}
		links.Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok {
				return
			}
			target := urlutil.ResolveURL(run.StartURL, href)
			if err := urlutil.ValidateURL(target); err != nil {
				logger.Debug().Str("href", href).Msg("Dropping subcategory with invalid URL")
				return
			}
			subName := text(a)
			if subName == "" {
				logger.Debug().Str("url", target).Msg("Dropping subcategory with empty name")
				return
			}
			sec.AddSubcategory(subName, target)
		})

		logger.Debug().
			Str("section", name).
			Int("subcategories", len(sec.Subcategories)).
			Msg("Section discovered")
	})

	logger.Info().Int("sections", len(run.Sections)).Msg("Section discovery complete")
	return nil
}

func text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
