package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/medline/expocrawl/internal/crawlerr"
	"github.com/medline/expocrawl/internal/render"
	"github.com/medline/expocrawl/internal/selector"
	"github.com/medline/expocrawl/internal/taskctx"
	urlutil "github.com/medline/expocrawl/internal/utils/url"
	"github.com/medline/expocrawl/pkg/models"
)

// crawlIndex walks one subcategory's index pages and collects its entries.
// The first page carries the identity check: the page heading must equal the
// subcategory name the link promised, case-insensitively, or the whole
// subcategory is marked failed. Continuation pages are followed breadth-first
// through the visited set, so cyclic pagination links terminate.
func (c *Crawler) crawlIndex(ctx context.Context, sub *models.Subcategory) error {
	tc := taskctx.FromContext(ctx)
	logger := log.With().Str("task_id", tc.TaskID).Str("subcategory", sub.Name).Logger()

	visited := NewVisitedSet()
	visited.Add(sub.URL)
	queue := []string{sub.URL}

	for pageNum := 0; len(queue) > 0; pageNum++ {
		pageURL := queue[0]
		queue = queue[1:]

		next, err := c.indexPage(ctx, sub, pageURL, pageNum == 0)
		if err != nil {
			if pageNum == 0 {
				sub.Failure = failureFor("index", err)
				return err
			}
			// A continuation page failing does not void what earlier pages
			// yielded; record it and keep going.
			sub.Warnings = append(sub.Warnings, "pagination page failed: "+pageURL)
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
		Int("entries", len(sub.Entries)).
		Int("pages", visited.Len()).
		Msg("Index traversal complete")
	return nil
}

// indexPage processes a single index page: identity check (first page only),
// entry extraction, and discovery of further pagination links.
func (c *Crawler) indexPage(ctx context.Context, sub *models.Subcategory, pageURL string, first bool) ([]string, error) {
	sess, err := c.open(ctx, pageURL, c.profile.Index.Wait, render.WaitAttached)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	page, err := sess.Page(ctx)
	if err != nil {
		return nil, err
	}

	if first {
		heading, err := selector.First("index heading", c.profile.Index.Heading, page.Root())
		if err != nil {
			return nil, err
		}
		if got := text(heading); !strings.EqualFold(got, sub.Name) {
			return nil, crawlerr.IdentityMismatch(
				fmt.Sprintf("page heading %q does not match subcategory %q", got, sub.Name))
		}
	}

	items, err := selector.Resolve("index entries", c.profile.Index.Items, page.Root())
	if err != nil {
		return nil, err
	}

	tc := taskctx.FromContext(ctx)
	logger := log.With().Str("task_id", tc.TaskID).Str("url", pageURL).Logger()

	items.Each(func(i int, item *goquery.Selection) {
		entry := &models.IndexEntry{}

		link, err := selector.First("entry link", c.profile.Index.Link, item)
		if err != nil {
			logger.Debug().Int("index", i).Msg("Dropping entry without a link")
			return
		}
		href, _ := link.Attr("href")
		target := urlutil.ResolveURL(pageURL, href)
		if err := urlutil.ValidateURL(target); err != nil {
			logger.Debug().Str("href", href).Msg("Dropping entry with invalid URL")
			return
		}
		entry.URL = target

		if title, err := selector.First("entry title", c.profile.Index.Title, item); err == nil {
			entry.Title = text(title)
		}
		if entry.Title == "" {
			entry.Warnings = append(entry.Warnings, "entry title missing")
		}

		if img, err := selector.First("entry image", c.profile.Index.Image, item); err == nil {
			entry.Image = imageMeta(img, pageURL)
		} else {
			entry.Warnings = append(entry.Warnings, "entry image missing")
		}

		sub.AddEntry(entry)
	})

	return paginationLinks(page, c.profile.Index.Pagination, pageURL), nil
}

// paginationLinks collects the absolute URLs of the page's pagination anchors.
// An empty result just means a single-page listing.
func paginationLinks(page *render.Page, chain selector.Chain, base string) []string {
	links, err := selector.Resolve("pagination", chain, page.Root())
	if err != nil {
		return nil
	}

	var out []string
	links.Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && href != "" && href != "#" {
			out = append(out, urlutil.ResolveURL(base, href))
		}
	})
	return out
}

// imageMeta captures the src and alt of an image element, resolving relative
// sources against the page URL.
func imageMeta(img *goquery.Selection, base string) models.ImageMeta {
	meta := models.ImageMeta{}
	if src, ok := img.Attr("src"); ok && src != "" {
		meta.Src = urlutil.ResolveURL(base, src)
	}
	meta.Alt, _ = img.Attr("alt")
	return meta
}
