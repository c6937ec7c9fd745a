package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/medline/expocrawl/internal/selector"
)

func TestDefaultValidates(t *testing.T) {
	p := Default()
	if err := p.Validate(); err != nil {
		t.Fatalf("default profile must validate: %v", err)
	}
}

func TestMatchProductURL(t *testing.T) {
	p := Default()
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	valid := "https://www.medicalexpo.com/prod/acme/product-12345-67890.html"
	if !p.MatchProductURL(valid) {
		t.Errorf("expected match for %s", valid)
	}

	invalid := []string{
		"https://www.medicalexpo.com/prod/acme/product-12345.html",
		"https://www.medicalexpo.com/cat/acme.html",
		"https://example.com/prod/acme/product-1-2.html",
	}
	for _, u := range invalid {
		if p.MatchProductURL(u) {
			t.Errorf("expected no match for %s", u)
		}
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	content := `
product_url_pattern: '^https://shop\.test/p/\d+$'
tiles:
  items:
    - ".card"
  title:
    - tag: h2
      attr: class
      value: name
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !p.MatchProductURL("https://shop.test/p/42") {
		t.Error("overridden pattern should match shop URL")
	}
	if got := p.Tiles.Items[0].Expr(); got != ".card" {
		t.Errorf("tiles.items not overridden, got %q", got)
	}
	if got := p.Tiles.Title[0].Expr(); got != "h2[class='name']" {
		t.Errorf("expected compiled attribute matcher, got %q", got)
	}
	// Untouched sections keep their defaults.
	if len(p.Sections.Items) == 0 {
		t.Error("sections.items default should survive a partial override")
	}
}

func TestValidateRejectsEmptyMandatoryChain(t *testing.T) {
	p := Default()
	p.Tiles.Items = selector.Chain{}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for empty tiles.items")
	}
}

func TestValidateRejectsBadPattern(t *testing.T) {
	p := Default()
	p.ProductURLPattern = "["
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}
