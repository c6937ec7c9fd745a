package models

import "time"

// RunStatus describes how a crawl run ended.
type RunStatus string

const (
	// StatusRunning is the status of a run that has not been finalized yet.
	StatusRunning RunStatus = "running"
	// StatusCompleted means every branch finished without a failure marker.
	StatusCompleted RunStatus = "completed"
	// StatusPartial means the run finished but at least one node carries a failure marker.
	StatusPartial RunStatus = "partial"
	// StatusAborted means a fatal error stopped the run; the tree holds whatever was aggregated.
	StatusAborted RunStatus = "aborted"
)

// FailureKind classifies why a node was marked failed.
type FailureKind string

const (
	FailureRetryExhausted   FailureKind = "retry_exhausted"
	FailureElementNotFound  FailureKind = "element_not_found"
	FailureIdentityMismatch FailureKind = "identity_mismatch"
	FailureRobotsDenied     FailureKind = "robots_denied"
	FailureHTTPError        FailureKind = "http_error"
	FailureNoDetailURL      FailureKind = "no_detail_url"
)

// Failure marks a node whose unit of work failed. The node stays in the tree
// with this marker instead of being dropped, so the known hierarchy survives.
type Failure struct {
	Stage  string      `json:"stage"`
	Kind   FailureKind `json:"kind"`
	Reason string      `json:"reason"`
	At     time.Time   `json:"at"`
}

// NewFailure builds a failure marker stamped with the current time.
func NewFailure(stage string, kind FailureKind, reason string) *Failure {
	return &Failure{Stage: stage, Kind: kind, Reason: reason, At: time.Now()}
}

// ImageMeta holds the source URL and alt text of an image element.
type ImageMeta struct {
	Src string `json:"src,omitempty"`
	Alt string `json:"alt,omitempty"`
}

// Characteristic is one row of a product's characteristics table.
// Kept as a slice of pairs rather than a map to preserve page order.
type Characteristic struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Manufacturer holds supplier details from a product detail page.
type Manufacturer struct {
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`
	Rating   int    `json:"rating,omitempty"`
}

// CrawlRun is the root of one traversal. It owns the full section forest and
// is mutated only by the stage currently producing a given subtree; once
// finalized it is frozen and handed to the archive and export sinks.
type CrawlRun struct {
	ID         string     `json:"id"`
	StartURL   string     `json:"start_url"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Status     RunStatus  `json:"status"`
	Sections   []*Section `json:"sections"`
}

// NewRun creates an empty run in the running state.
func NewRun(id, startURL string) *CrawlRun {
	return &CrawlRun{
		ID:        id,
		StartURL:  startURL,
		StartedAt: time.Now(),
		Status:    StatusRunning,
	}
}

// Section is a top-level category discovered on the entry page.
type Section struct {
	Name          string         `json:"name"`
	Subcategories []*Subcategory `json:"subcategories"`
}

// Subcategory is one linked category under a section. Its index pages are the
// stage-1 unit of work.
type Subcategory struct {
	Name     string        `json:"name"`
	URL      string        `json:"url"`
	Entries  []*IndexEntry `json:"entries"`
	Failure  *Failure      `json:"failure,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

// IndexEntry is one product-listing link on a subcategory index page. Its
// listing pages are the stage-2 unit of work.
type IndexEntry struct {
	Title    string         `json:"title"`
	URL      string         `json:"url"`
	Image    ImageMeta      `json:"image,omitempty"`
	Tiles    []*TileSummary `json:"tiles"`
	Failure  *Failure       `json:"failure,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// TileSummary is the lightweight per-product data captured from a listing
// page. A tile with no resolvable detail URL is a tombstone: it stays in the
// tree with a failure marker and never gets a record.
type TileSummary struct {
	Title            string         `json:"title,omitempty"`
	Description      string         `json:"description,omitempty"`
	Features         []string       `json:"features,omitempty"`
	Price            string         `json:"price,omitempty"`
	Image            ImageMeta      `json:"image,omitempty"`
	ManufacturerLogo ImageMeta      `json:"manufacturer_logo,omitempty"`
	HasVideo         bool           `json:"has_video,omitempty"`
	DetailURL        string         `json:"detail_url,omitempty"`
	Record           *ProductRecord `json:"record,omitempty"`
	Failure          *Failure       `json:"failure,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`
}

// ProductDetail holds the full attributes fetched from a tile's detail page.
type ProductDetail struct {
	Title            string           `json:"title,omitempty"`
	Model            string           `json:"model,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
	Description      string           `json:"description,omitempty"`
	DescriptionHTML  string           `json:"description_html,omitempty"`
	Characteristics  []Characteristic `json:"characteristics,omitempty"`
	CatalogAvailable *bool            `json:"catalog_available,omitempty"`
	VideoURL         string           `json:"video_url,omitempty"`
	Manufacturer     Manufacturer     `json:"manufacturer,omitempty"`
	Images           []string         `json:"images,omitempty"`
	Price            string           `json:"price,omitempty"`
	Currency         string           `json:"currency,omitempty"`
}

// ProductRecord is the immutable merged leaf: a tile summary combined with
// its product detail. Built once by MergeRecord and never mutated.
type ProductRecord struct {
	Title            string           `json:"title,omitempty"`
	Model            string           `json:"model,omitempty"`
	Manufacturer     Manufacturer     `json:"manufacturer,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
	Description      string           `json:"description,omitempty"`
	DescriptionHTML  string           `json:"description_html,omitempty"`
	Characteristics  []Characteristic `json:"characteristics,omitempty"`
	CatalogAvailable *bool            `json:"catalog_available,omitempty"`
	VideoURL         string           `json:"video_url,omitempty"`
	Images           []string         `json:"images,omitempty"`
	Price            string           `json:"price,omitempty"`
	Currency         string           `json:"currency,omitempty"`
	Features         []string         `json:"features,omitempty"`
	TileImage        ImageMeta        `json:"tile_image,omitempty"`
	DetailURL        string           `json:"detail_url"`
}

// MergeRecord builds the leaf record from a tile and its detail. For every
// field present in both, the detail's non-null value wins and the tile's
// value fills the gap otherwise; fields absent from both stay empty.
func MergeRecord(tile *TileSummary, detail *ProductDetail) *ProductRecord {
	rec := &ProductRecord{
		Title:            pick(detail.Title, tile.Title),
		Model:            detail.Model,
		Manufacturer:     detail.Manufacturer,
		Tags:             detail.Tags,
		Description:      pick(detail.Description, tile.Description),
		DescriptionHTML:  detail.DescriptionHTML,
		Characteristics:  detail.Characteristics,
		CatalogAvailable: detail.CatalogAvailable,
		VideoURL:         detail.VideoURL,
		Images:           detail.Images,
		Price:            pick(detail.Price, tile.Price),
		Currency:         detail.Currency,
		Features:         tile.Features,
		TileImage:        tile.Image,
		DetailURL:        tile.DetailURL,
	}

	// The listing page's manufacturer logo alt text carries the supplier name;
	// it fills the gap when the detail page had no supplier block.
	if rec.Manufacturer.Name == "" {
		rec.Manufacturer.Name = tile.ManufacturerLogo.Alt
	}
	if len(rec.Images) == 0 && tile.Image.Src != "" {
		rec.Images = []string{tile.Image.Src}
	}
	return rec
}

func pick(detail, tile string) string {
	if detail != "" {
		return detail
	}
	return tile
}

// AddSection appends a new named section and returns it. Called only by the
// stage-0 task, which owns the run root.
func (r *CrawlRun) AddSection(name string) *Section {
	s := &Section{Name: name}
	r.Sections = append(r.Sections, s)
	return s
}

// AddSubcategory appends a new subcategory and returns it. Called only by the
// task that owns this section.
func (s *Section) AddSubcategory(name, url string) *Subcategory {
	sub := &Subcategory{Name: name, URL: url}
	s.Subcategories = append(s.Subcategories, sub)
	return sub
}

// AddEntry appends an index entry. Called only by the stage-1 task that owns
// this subcategory.
func (s *Subcategory) AddEntry(e *IndexEntry) {
	s.Entries = append(s.Entries, e)
}

// AddTile appends a tile summary. Called only by the stage-2 task that owns
// this entry.
func (e *IndexEntry) AddTile(t *TileSummary) {
	e.Tiles = append(e.Tiles, t)
}

// Finalize stamps the finish time and derives the terminal status: aborted if
// requested, partial if any node carries a failure marker, completed
// otherwise.
func (r *CrawlRun) Finalize(aborted bool) {
	r.FinishedAt = time.Now()
	switch {
	case aborted:
		r.Status = StatusAborted
	case r.FailureCount() > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusCompleted
	}
}

// Records collects every merged leaf in tree order.
func (r *CrawlRun) Records() []*ProductRecord {
	var out []*ProductRecord
	r.walk(func(sec *Section, sub *Subcategory, e *IndexEntry, t *TileSummary) {
		if t != nil && t.Record != nil {
			out = append(out, t.Record)
		}
	})
	return out
}

// FailureCount counts failure markers across the whole tree.
func (r *CrawlRun) FailureCount() int {
	n := 0
	r.walk(func(sec *Section, sub *Subcategory, e *IndexEntry, t *TileSummary) {
		switch {
		case t != nil:
			if t.Failure != nil {
				n++
			}
		case e != nil:
			if e.Failure != nil {
				n++
			}
		case sub != nil:
			if sub.Failure != nil {
				n++
			}
		}
	})
	return n
}

// Totals summarizes node counts for run reporting.
type Totals struct {
	Sections      int `json:"sections"`
	Subcategories int `json:"subcategories"`
	Entries       int `json:"entries"`
	Tiles         int `json:"tiles"`
	Records       int `json:"records"`
	Failures      int `json:"failures"`
}

// Totals walks the tree once and counts every node level.
func (r *CrawlRun) Totals() Totals {
	var t Totals
	t.Failures = r.FailureCount()
	for _, sec := range r.Sections {
		t.Sections++
		for _, sub := range sec.Subcategories {
			t.Subcategories++
			for _, e := range sub.Entries {
				t.Entries++
				for _, tile := range e.Tiles {
					t.Tiles++
					if tile.Record != nil {
						t.Records++
					}
				}
			}
		}
	}
	return t
}

// walk visits every node depth-first. The callback receives the deepest
// non-nil node of each visit: (sec, nil, nil, nil) for sections, down to
// (sec, sub, e, t) for tiles.
func (r *CrawlRun) walk(fn func(*Section, *Subcategory, *IndexEntry, *TileSummary)) {
	for _, sec := range r.Sections {
		fn(sec, nil, nil, nil)
		for _, sub := range sec.Subcategories {
			fn(sec, sub, nil, nil)
			for _, e := range sub.Entries {
				fn(sec, sub, e, nil)
				for _, t := range e.Tiles {
					fn(sec, sub, e, t)
				}
			}
		}
	}
}
