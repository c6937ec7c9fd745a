package export

import (
	"fmt"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/medline/expocrawl/pkg/models"
)

// WriteReport renders the per-section Markdown summary. Product descriptions
// arrive as raw detail-page HTML; they are sanitized and converted before
// inclusion.
func WriteReport(path string, run *models.CrawlRun) error {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	var b strings.Builder
	totals := run.Totals()

	fmt.Fprintf(&b, "# Crawl report %s\n\n", run.ID)
	fmt.Fprintf(&b, "- Start URL: %s\n", run.StartURL)
	fmt.Fprintf(&b, "- Status: %s\n", run.Status)
	fmt.Fprintf(&b, "- Sections: %d, subcategories: %d, entries: %d\n", totals.Sections, totals.Subcategories, totals.Entries)
	fmt.Fprintf(&b, "- Products: %d records from %d tiles, %d failures\n\n", totals.Records, totals.Tiles, totals.Failures)

	for _, sec := range run.Sections {
		fmt.Fprintf(&b, "## %s\n\n", sec.Name)
		for _, sub := range sec.Subcategories {
			fmt.Fprintf(&b, "### %s\n\n", sub.Name)
			if sub.Failure != nil {
				fmt.Fprintf(&b, "> failed (%s): %s\n\n", sub.Failure.Kind, sub.Failure.Reason)
				continue
			}
			for _, e := range sub.Entries {
				fmt.Fprintf(&b, "#### %s\n\n", e.Title)
				if e.Failure != nil {
					fmt.Fprintf(&b, "> failed (%s): %s\n\n", e.Failure.Kind, e.Failure.Reason)
					continue
				}
				for _, t := range e.Tiles {
					writeTile(&b, converter, t)
				}
			}
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeTile(b *strings.Builder, converter *md.Converter, t *models.TileSummary) {
	switch {
	case t.Record != nil:
		rec := t.Record
		fmt.Fprintf(b, "- **%s**", rec.Title)
		if rec.Manufacturer.Name != "" {
			fmt.Fprintf(b, " — %s", rec.Manufacturer.Name)
		}
		if rec.Price != "" {
			fmt.Fprintf(b, " (%s)", rec.Price)
		}
		fmt.Fprintf(b, " — [%s](%s)\n", "detail", rec.DetailURL)

		if rec.DescriptionHTML != "" {
			if desc := descriptionMarkdown(converter, rec.DescriptionHTML); desc != "" {
				fmt.Fprintf(b, "\n  %s\n", strings.ReplaceAll(desc, "\n", "\n  "))
			}
		} else if rec.Description != "" {
			fmt.Fprintf(b, "\n  %s\n", rec.Description)
		}
		b.WriteString("\n")
	case t.Failure != nil:
		fmt.Fprintf(b, "- %s — failed (%s)\n\n", tileLabel(t), t.Failure.Kind)
	default:
		fmt.Fprintf(b, "- %s\n\n", tileLabel(t))
	}
}

func tileLabel(t *models.TileSummary) string {
	if t.Title != "" {
		return t.Title
	}
	return "(untitled tile)"
}

func descriptionMarkdown(converter *md.Converter, rawHTML string) string {
	cleaned, err := CleanHTML(rawHTML)
	if err != nil {
		return ""
	}
	out, err := converter.ConvertString(cleaned)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// CleanHTML strips active content and all attributes except link/image
// essentials, leaving an excerpt safe to hand to the Markdown converter.
func CleanHTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, link, meta, noscript, iframe, svg, form, input, button, select, textarea, canvas").Remove()

	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		if len(s.Nodes) == 0 {
			return
		}
		node := s.Nodes[0]
		var newAttrs []html.Attribute
		for _, attr := range node.Attr {
			keep := false
			switch node.Data {
			case "a":
				if attr.Key == "href" || attr.Key == "title" {
					keep = true
				}
			case "img":
				if attr.Key == "src" || attr.Key == "alt" || attr.Key == "title" {
					keep = true
				}
			}
			if keep {
				newAttrs = append(newAttrs, attr)
			}
		}
		node.Attr = newAttrs
	})

	htmlStr, err := doc.Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(htmlStr), nil
}
