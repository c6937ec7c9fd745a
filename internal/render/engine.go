// Package render provides the rendering/DOM-query engines behind a small
// interface: headless Chrome for the JS-rendered target site, and a plain
// HTTP engine for server-rendered pages and tests. The crawl pipeline only
// sees Engine, Session and Page.
package render

import (
	"context"
	"io"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// WaitState selects how a wait condition completes.
type WaitState string

const (
	// WaitAttached completes when the selector is present in the DOM.
	WaitAttached WaitState = "attached"
	// WaitVisible completes when the selector is present and visible.
	// Visibility is advisory in the pipeline: it is checked and logged but
	// never gates progress.
	WaitVisible WaitState = "visible"
)

// OpenOptions configures one navigation.
type OpenOptions struct {
	// WaitSelector, when set, is waited for after navigation.
	WaitSelector string
	WaitState    WaitState
	// Timeout bounds the navigation and the wait together.
	Timeout time.Duration
}

// Engine opens rendering sessions. One engine handle exists per run; Shutdown
// releases the underlying browser process (or is a no-op for plain HTTP).
type Engine interface {
	// Open navigates to url in a fresh, isolated session. The caller owns the
	// session for its lifetime and must Close it on every exit path.
	Open(ctx context.Context, url string, opts OpenOptions) (Session, error)
	Name() string
	Shutdown()
}

// Session is one isolated rendering context holding one loaded page.
type Session interface {
	// Page returns a DOM snapshot of the current document.
	Page(ctx context.Context) (*Page, error)
	// WaitFor blocks until the selector reaches the given state or the
	// timeout expires.
	WaitFor(ctx context.Context, sel string, state WaitState, timeout time.Duration) error
	URL() string
	Close()
}

// Page is an immutable goquery-backed DOM snapshot.
type Page struct {
	url string
	doc *goquery.Document
}

// NewPage parses an HTML document into a snapshot.
func NewPage(url string, r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &Page{url: url, doc: doc}, nil
}

// URL returns the address the snapshot was taken from.
func (p *Page) URL() string {
	return p.url
}

// Root returns the document-level selection, the widest scope for selector
// chain resolution.
func (p *Page) Root() *goquery.Selection {
	return p.doc.Selection
}

// Title returns the document title.
func (p *Page) Title() string {
	return p.doc.Find("title").First().Text()
}
