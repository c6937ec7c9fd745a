// Package profile holds every structural query the crawl stages consume, as
// data: selector chains, wait conditions and URL patterns for one target
// site. Defaults reproduce the medicalexpo.com layout; a YAML file can
// override any part for layout drift or another directory site.
package profile

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/medline/expocrawl/internal/selector"
)

// SectionsProfile locates the category menu on the entry page.
type SectionsProfile struct {
	// Wait is the selector whose attachment signals the menu has rendered.
	Wait string `yaml:"wait"`
	// Visible is checked after attachment and logged; it never gates progress.
	Visible       string         `yaml:"visible"`
	Items         selector.Chain `yaml:"items"`
	Label         selector.Chain `yaml:"label"`
	Subcategories selector.Chain `yaml:"subcategories"`
}

// IndexProfile locates index entries on a subcategory page.
type IndexProfile struct {
	Wait       string         `yaml:"wait"`
	Heading    selector.Chain `yaml:"heading"`
	Items      selector.Chain `yaml:"items"`
	Link       selector.Chain `yaml:"link"`
	Title      selector.Chain `yaml:"title"`
	Image      selector.Chain `yaml:"image"`
	Pagination selector.Chain `yaml:"pagination"`
}

// TilesProfile locates product tiles on an entry's listing page.
type TilesProfile struct {
	Wait        string         `yaml:"wait"`
	Items       selector.Chain `yaml:"items"`
	Title       selector.Chain `yaml:"title"`
	Description selector.Chain `yaml:"description"`
	Features    selector.Chain `yaml:"features"`
	Image       selector.Chain `yaml:"image"`
	Logo        selector.Chain `yaml:"logo"`
	VideoBadge  selector.Chain `yaml:"video_badge"`
	Link        selector.Chain `yaml:"link"`
	Pagination  selector.Chain `yaml:"pagination"`
}

// DetailProfile locates the full attribute set on a product page.
type DetailProfile struct {
	Wait                 string         `yaml:"wait"`
	TitleBlock           selector.Chain `yaml:"title_block"`
	Tags                 selector.Chain `yaml:"tags"`
	Description          selector.Chain `yaml:"description"`
	Characteristics      selector.Chain `yaml:"characteristics"`
	CatalogHeadings      selector.Chain `yaml:"catalog_headings"`
	VideoSource          selector.Chain `yaml:"video_source"`
	ManufacturerName     selector.Chain `yaml:"manufacturer_name"`
	ManufacturerLocation selector.Chain `yaml:"manufacturer_location"`
	RatingSpans          selector.Chain `yaml:"rating_spans"`
	Images               selector.Chain `yaml:"images"`
	ImageAttr            string         `yaml:"image_attr"`
	Price                selector.Chain `yaml:"price"`
}

// Profile is the complete structural description of one target site.
type Profile struct {
	// ProductURLPattern validates candidate detail links; tiles whose link
	// does not match become tombstones.
	ProductURLPattern string `yaml:"product_url_pattern"`

	Sections SectionsProfile `yaml:"sections"`
	Index    IndexProfile    `yaml:"index"`
	Tiles    TilesProfile    `yaml:"tiles"`
	Detail   DetailProfile   `yaml:"detail"`

	productURLRe *regexp.Regexp
}

// Default returns the built-in medicalexpo.com profile. The site is built on
// styled-components, so every chain leads with the generated class and falls
// back to a stable attribute or semantic query.
func Default() *Profile {
	return &Profile{
		ProductURLPattern: `^https://www\.medicalexpo\.com/prod/.+/product-\d+-\d+\.html$`,

		Sections: SectionsProfile{
			Wait:    ".sc-10tgqhe-0",
			Visible: "div.sc-19e28ua-1",
			Items: selector.Chain{
				selector.Css("li[data-cy^='universGroupItemCy_']"),
				selector.Css(".sc-6qd6g7-3"),
			},
			Label: selector.Chain{
				selector.Css("span[class*='UniverseGroupLabel']"),
				selector.Css("span[class*='universGroup__UniverseGroupLabel']"),
				selector.Css("span"),
			},
			Subcategories: selector.Chain{
				selector.Css("a[class*='CategoryLink']"),
				selector.Css("ul li a"),
			},
		},

		Index: IndexProfile{
			Wait: "ul.category-grouplist",
			Heading: selector.Chain{
				selector.Css("h1#category"),
				selector.Attr("h1", "id", "category"),
			},
			Items: selector.Chain{
				selector.Css("ul.category-grouplist > li"),
			},
			Link: selector.Chain{
				selector.Css("a"),
			},
			Title: selector.Chain{
				selector.Css("p.subCatTitle"),
			},
			Image: selector.Chain{
				selector.Css("div.imgSubCat > img"),
			},
			Pagination: selector.Chain{
				selector.Css("div.pagination-wrapper a"),
			},
		},

		Tiles: TilesProfile{
			Wait: ".product-tile",
			Items: selector.Chain{
				selector.Css(".product-tile"),
			},
			Title: selector.Chain{
				selector.Css("h3.short-name"),
			},
			Description: selector.Chain{
				selector.Css("p.description-text"),
			},
			Features: selector.Chain{
				selector.Css("div.feature-values-container span"),
			},
			Image: selector.Chain{
				selector.Css(".inset-img img"),
			},
			Logo: selector.Chain{
				selector.Css("a.logo img"),
			},
			VideoBadge: selector.Chain{
				selector.Css(".icon-big video"),
				selector.Css(".new-video"),
			},
			Link: selector.Chain{
				selector.Css("a:has(h3.short-name)"),
				selector.Css("a[href]"),
			},
			Pagination: selector.Chain{
				selector.Css("div.pagination-wrapper a"),
			},
		},

		Detail: DetailProfile{
			Wait: "body",
			TitleBlock: selector.Chain{
				selector.Css("span[class^='sc-2mcr2-0']"),
			},
			Tags: selector.Chain{
				selector.Css("div[class^='sc-cw67gy-0'] span[class^='sc-cw67gy-1']"),
			},
			Description: selector.Chain{
				selector.Css(".sc-3fi1by-0"),
			},
			Characteristics: selector.Chain{
				selector.Css("dl.sc-mgb5nu-0"),
				selector.Css("dl"),
			},
			CatalogHeadings: selector.Chain{
				selector.Css("h2"),
			},
			VideoSource: selector.Chain{
				selector.Css("div.sc-1w8z6ht-5 video source"),
				selector.Css("video source"),
			},
			ManufacturerName: selector.Chain{
				selector.Css("div[class*='supplierDetails__Name']"),
			},
			ManufacturerLocation: selector.Chain{
				selector.Css("div[class*='supplierDetails__Location']"),
			},
			RatingSpans: selector.Chain{
				selector.Css("div[class*='supplierDetails__RatingDetails'] span[style*='visibility: hidden']"),
			},
			Images: selector.Chain{
				selector.Css("div[class*='imageViewer__NavPicsWrapper'] img[data-src$='.jpg']"),
			},
			ImageAttr: "data-src",
			Price: selector.Chain{
				selector.Css("div[class*='mainSupplier__PriceValue'] span"),
			},
		},
	}
}

// Load reads a YAML profile file and merges it over the defaults: any field
// present in the file replaces the default wholesale.
func Load(path string) (*Profile, error) {
	p := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate rejects profiles missing mandatory chains or carrying an
// uncompilable URL pattern, and compiles the pattern for MatchProductURL.
func (p *Profile) Validate() error {
	mandatory := map[string]selector.Chain{
		"sections.items":         p.Sections.Items,
		"sections.label":         p.Sections.Label,
		"sections.subcategories": p.Sections.Subcategories,
		"index.heading":          p.Index.Heading,
		"index.items":            p.Index.Items,
		"tiles.items":            p.Tiles.Items,
		"detail.title_block":     p.Detail.TitleBlock,
	}
	for name, chain := range mandatory {
		if len(chain) == 0 {
			return fmt.Errorf("profile: mandatory chain %s is empty", name)
		}
	}

	re, err := regexp.Compile(p.ProductURLPattern)
	if err != nil {
		return fmt.Errorf("profile: invalid product URL pattern: %w", err)
	}
	p.productURLRe = re
	return nil
}

// MatchProductURL reports whether a candidate detail link is a valid product
// page URL for this site.
func (p *Profile) MatchProductURL(url string) bool {
	if p.productURLRe == nil {
		if err := p.Validate(); err != nil {
			return false
		}
	}
	return p.productURLRe.MatchString(url)
}
