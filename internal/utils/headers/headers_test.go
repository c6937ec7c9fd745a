package headers

import (
	"net/http"
	"reflect"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	in := []string{"User-Agent: Bot", "Accept: text/html", "BadHeader"}
	out := ParseHeaders(in)
	expected := map[string]string{"User-Agent": "Bot", "Accept": "text/html"}
	if !reflect.DeepEqual(out, expected) {
		t.Fatalf("unexpected parse result: %#v", out)
	}
}

func TestRandomUserAgentFromPool(t *testing.T) {
	seen := map[string]bool{}
	for _, ua := range userAgents {
		seen[ua] = true
	}
	for i := 0; i < 20; i++ {
		if !seen[RandomUserAgent()] {
			t.Fatal("random user agent not from pool")
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	req, _ := http.NewRequest("GET", "https://example.com", nil)
	Apply(req, "Custom/1.0")
	if req.Header.Get("User-Agent") != "Custom/1.0" {
		t.Errorf("custom user agent not applied: %q", req.Header.Get("User-Agent"))
	}
	if req.Header.Get("Accept-Language") == "" {
		t.Error("default headers missing")
	}

	req, _ = http.NewRequest("GET", "https://example.com", nil)
	Apply(req, "")
	if req.Header.Get("User-Agent") == "" {
		t.Error("expected a pooled user agent when none configured")
	}
}
