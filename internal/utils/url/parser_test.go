package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestResolveURL(t *testing.T) {
	base := "https://example.com/cat/index.html"
	if got := ResolveURL(base, "/prod/p-1.html"); got != "https://example.com/prod/p-1.html" {
		t.Errorf("unexpected resolution: %q", got)
	}
	if got := ResolveURL(base, "https://other.com/x"); got != "https://other.com/x" {
		t.Errorf("absolute href must pass through, got %q", got)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"HTTPS://Example.COM:443/Path/":   "https://example.com/Path",
		"http://example.com:80/a#frag":    "http://example.com/a",
		"https://example.com/":            "https://example.com/",
		"https://example.com/list?page=2": "https://example.com/list?page=2",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSameResource(t *testing.T) {
	if !SameResource("https://example.com/list/", "HTTPS://example.com/list") {
		t.Error("expected same resource")
	}
	if SameResource("https://example.com/list?page=2", "https://example.com/list") {
		t.Error("expected different resources")
	}
}
