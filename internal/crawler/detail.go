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

// crawlDetail fetches one product's detail page, extracts the full attribute
// set and merges it with the tile summary into the immutable leaf record.
func (c *Crawler) crawlDetail(ctx context.Context, tile *models.TileSummary) error {
	tc := taskctx.FromContext(ctx)
	logger := log.With().Str("task_id", tc.TaskID).Str("url", tile.DetailURL).Logger()

	sess, err := c.open(ctx, tile.DetailURL, c.profile.Detail.Wait, render.WaitAttached)
	if err != nil {
		tile.Failure = failureFor("detail", err)
		return err
	}
	defer sess.Close()

	page, err := sess.Page(ctx)
	if err != nil {
		tile.Failure = failureFor("detail", err)
		return err
	}

	detail := c.extractDetail(page, tile)
	tile.Record = models.MergeRecord(tile, detail)

	logger.Debug().Str("title", tile.Record.Title).Msg("Product record built")
	return nil
}

// extractDetail pulls every detail-page field the profile describes. Missing
// fields become warnings on the tile, never errors: a sparse page still
// yields a record.
func (c *Crawler) extractDetail(page *render.Page, tile *models.TileSummary) *models.ProductDetail {
	root := page.Root()
	detail := &models.ProductDetail{}
	warn := func(field string) {
		tile.Warnings = append(tile.Warnings, field+" missing on detail page")
	}

	// The title block's first span is the product name, the second (when
	// present) the model designation.
	if spans, err := selector.Resolve("detail title", c.profile.Detail.TitleBlock, root); err == nil {
		detail.Title = text(spans.First())
		if spans.Length() > 1 {
			detail.Model = text(spans.Eq(1))
		}
	} else {
		warn("title")
	}

	if tags, err := selector.Resolve("detail tags", c.profile.Detail.Tags, root); err == nil {
		tags.Each(func(_ int, t *goquery.Selection) {
			if v := text(t); v != "" {
				detail.Tags = append(detail.Tags, v)
			}
		})
	}

	if desc, err := selector.First("detail description", c.profile.Detail.Description, root); err == nil {
		detail.Description = text(desc)
		if html, err := desc.Html(); err == nil {
			detail.DescriptionHTML = html
		}
	} else {
		warn("description")
	}

	if dl, err := selector.First("characteristics", c.profile.Detail.Characteristics, root); err == nil {
		detail.Characteristics = extractCharacteristics(dl)
	}

	if headings, err := selector.Resolve("catalog headings", c.profile.Detail.CatalogHeadings, root); err == nil {
		detail.CatalogAvailable = catalogAvailability(headings)
	}

	if src, err := selector.First("video source", c.profile.Detail.VideoSource, root); err == nil {
		if v, ok := src.Attr("src"); ok && v != "" {
			detail.VideoURL = urlutil.ResolveURL(page.URL(), v)
		}
	}

	if name, err := selector.First("manufacturer name", c.profile.Detail.ManufacturerName, root); err == nil {
		detail.Manufacturer.Name = text(name)
	}
	if loc, err := selector.First("manufacturer location", c.profile.Detail.ManufacturerLocation, root); err == nil {
		detail.Manufacturer.Location = text(loc)
	}
	// The rating widget renders five stars and hides the unearned ones; the
	// hidden-span count is the rating.
	if spans, err := selector.Resolve("manufacturer rating", c.profile.Detail.RatingSpans, root); err == nil {
		detail.Manufacturer.Rating = spans.Length()
	}

	if imgs, err := selector.Resolve("detail images", c.profile.Detail.Images, root); err == nil {
		seen := make(map[string]struct{})
		imgs.Each(func(_ int, img *goquery.Selection) {
			src, ok := img.Attr(c.imageAttr())
			if !ok || src == "" {
				return
			}
			abs := urlutil.ResolveURL(page.URL(), src)
			if _, dup := seen[abs]; dup {
				return
			}
			seen[abs] = struct{}{}
			detail.Images = append(detail.Images, abs)
		})
	}

	if price, err := selector.First("price", c.profile.Detail.Price, root); err == nil {
		detail.Price = text(price)
	}
	if detail.Price == "" {
		detail.Price = probePrice(page)
	}
	if strings.Contains(detail.Price, "$") {
		detail.Currency = "USD"
	}

	return detail
}

func (c *Crawler) imageAttr() string {
	if a := c.profile.Detail.ImageAttr; a != "" {
		return a
	}
	return "src"
}

// extractCharacteristics walks a definition list in document order, pairing
// each dt with the dd that follows it.
func extractCharacteristics(dl *goquery.Selection) []models.Characteristic {
	var out []models.Characteristic
	var current string
	dl.Children().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "dt":
			current = text(child)
		case "dd":
			if current != "" {
				out = append(out, models.Characteristic{Name: current, Value: text(child)})
				current = ""
			}
		}
	})
	return out
}

// catalogAvailability inspects the page's section headings for the catalogs
// block. Absent heading means unknown (nil); a "no catalogs" heading means
// explicitly unavailable.
func catalogAvailability(headings *goquery.Selection) *bool {
	var result *bool
	headings.EachWithBreak(func(_ int, h *goquery.Selection) bool {
		t := strings.ToLower(text(h))
		if !strings.Contains(t, "catalog") {
			return true
		}
		available := !strings.Contains(t, "no catalog")
		result = &available
		return false
	})
	return result
}

// probePrice falls back to the script-state probe when the DOM chains find no
// price: hydration scripts assign the indicative price to a page global
// before the widget renders.
func probePrice(page *render.Page) string {
	for key, val := range render.ProbeGlobals(page) {
		if strings.Contains(strings.ToLower(key), "price") && val != "" {
			return val
		}
	}
	return ""
}
