package selector

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

const fixture = `
<html><body>
  <div id="left">
    <span class="label">Left Label</span>
    <ul><li>one</li><li>two</li></ul>
  </div>
  <div id="right">
    <span data-role="caption">Right Caption</span>
  </div>
</body></html>`

func doc(t *testing.T) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return d
}

func TestResolveFirstMatchWins(t *testing.T) {
	chain := Chain{
		Css("span.missing"),
		Css("span.label"),
		Css("span"), // never reached
	}

	sel, err := Resolve("label", chain, doc(t).Selection)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sel.First().Text(); got != "Left Label" {
		t.Errorf("expected first matching candidate, got %q", got)
	}
}

func TestResolveAllCandidatesEmpty(t *testing.T) {
	chain := Chain{Css(".nope"), Css("#also-nope")}

	_, err := Resolve("ghost", chain, doc(t).Selection)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Target != "ghost" || nf.Tried != 2 {
		t.Errorf("unexpected error detail: %+v", nf)
	}
}

func TestResolveScoped(t *testing.T) {
	d := doc(t)
	right := d.Find("#right")

	// The label exists in the document but not inside the scope.
	_, err := Resolve("label", Chain{Css("span.label")}, right)
	if err == nil {
		t.Fatal("expected scoped resolution to miss sibling subtree")
	}

	sel, err := Resolve("caption", Chain{Attr("span", "data-role", "caption")}, right)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sel.First().Text(); got != "Right Caption" {
		t.Errorf("expected scoped match, got %q", got)
	}
}

func TestAttrFallbackExpr(t *testing.T) {
	m := Attr("span", "data-role", "caption")
	if got := m.Expr(); got != "span[data-role='caption']" {
		t.Errorf("unexpected expression: %q", got)
	}

	m = Attr("", "id", "x")
	if got := m.Expr(); got != "*[id='x']" {
		t.Errorf("expected wildcard tag, got %q", got)
	}
}

func TestChainUnmarshalYAML(t *testing.T) {
	src := `
- "span.label"
- tag: span
  attr: data-role
  value: caption
`
	var chain Chain
	if err := yaml.Unmarshal([]byte(src), &chain); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("expected 2 matchers, got %d", len(chain))
	}
	if chain[0].Query != "span.label" {
		t.Errorf("scalar form not decoded: %+v", chain[0])
	}
	if chain[1].Expr() != "span[data-role='caption']" {
		t.Errorf("mapping form not decoded: %+v", chain[1])
	}
}
