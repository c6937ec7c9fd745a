package render

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/medline/expocrawl/internal/crawlerr"
	"github.com/medline/expocrawl/internal/proxy"
	"github.com/medline/expocrawl/internal/utils/headers"
)

func TestStaticEngineOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Fixture</title></head><body><div id="main">hello</div></body></html>`))
	}))
	defer server.Close()

	e := NewStaticEngine(StaticOptions{Timeout: 5 * time.Second, UserAgent: "Test/1.0"})
	defer e.Shutdown()

	sess, err := e.Open(context.Background(), server.URL, OpenOptions{
		WaitSelector: "#main",
		WaitState:    WaitAttached,
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer sess.Close()

	page, err := sess.Page(context.Background())
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if page.Title() != "Fixture" {
		t.Errorf("unexpected title: %q", page.Title())
	}
	if got := page.Root().Find("#main").Text(); got != "hello" {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestStaticEngineRetryableStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := NewStaticEngine(StaticOptions{Timeout: 5 * time.Second})
	defer e.Shutdown()

	_, err := e.Open(context.Background(), server.URL, OpenOptions{})
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if !crawlerr.Retryable(err) {
		t.Errorf("503 should classify as retryable, got %v", err)
	}
}

func TestStaticEngineNonRetryableStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	e := NewStaticEngine(StaticOptions{Timeout: 5 * time.Second})
	defer e.Shutdown()

	_, err := e.Open(context.Background(), server.URL, OpenOptions{})
	var ce *crawlerr.Error
	if !errors.As(err, &ce) || ce.Kind != crawlerr.KindHTTPError {
		t.Fatalf("expected HTTP error classification for 404, got %v", err)
	}
	if crawlerr.Retryable(err) {
		t.Error("404 must not classify as retryable")
	}
}

func TestStaticEngineExtraHeaders(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Token")
		w.Write([]byte(`<html><body></body></html>`))
	}))
	defer server.Close()

	e := NewStaticEngine(StaticOptions{
		Timeout: 5 * time.Second,
		Headers: headers.ParseHeaders([]string{"X-Token: abc"}),
	})
	defer e.Shutdown()

	sess, err := e.Open(context.Background(), server.URL, OpenOptions{})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	sess.Close()

	if got != "abc" {
		t.Errorf("extra header not sent, got %q", got)
	}
}

func TestStaticEngineProxyCooldown(t *testing.T) {
	var served atomic.Int32
	// Answers absolute-URI requests like a plain HTTP proxy would.
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served.Add(1)
		w.Write([]byte(`<html><body><p>ok</p></body></html>`))
	}))
	defer live.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	pool := proxy.NewPool([]string{deadURL, live.URL})
	e := NewStaticEngine(StaticOptions{Timeout: 2 * time.Second, Proxies: pool})
	defer e.Shutdown()

	// First navigation draws the dead proxy and fails.
	if _, err := e.Open(context.Background(), "http://site.test/a", OpenOptions{}); err == nil {
		t.Fatal("expected failure through the dead proxy")
	}

	// The dead proxy is on cooldown now; both following navigations must
	// route through the live one.
	for i := 0; i < 2; i++ {
		sess, err := e.Open(context.Background(), "http://site.test/b", OpenOptions{})
		if err != nil {
			t.Fatalf("open via live proxy failed: %v", err)
		}
		sess.Close()
	}
	if served.Load() != 2 {
		t.Errorf("expected 2 fetches through the live proxy, got %d", served.Load())
	}
}

func TestStaticEngineWaitSelectorMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body></body></html>`))
	}))
	defer server.Close()

	e := NewStaticEngine(StaticOptions{Timeout: 5 * time.Second})
	defer e.Shutdown()

	_, err := e.Open(context.Background(), server.URL, OpenOptions{WaitSelector: "#never"})
	var ce *crawlerr.Error
	if !errors.As(err, &ce) || ce.Kind != crawlerr.KindTimeout {
		t.Fatalf("expected timeout classification for missing wait selector, got %v", err)
	}
}

func TestProbeGlobals(t *testing.T) {
	html := `<html><body>
	  <script src="https://cdn.example.com/app.js"></script>
	  <script>var indicativePrice = "$42"; var internal = {a: 1};</script>
	</body></html>`

	page, err := NewPage("https://example.com/p", strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	globals := ProbeGlobals(page)
	if globals["indicativePrice"] != "$42" {
		t.Errorf("expected probed price, got %q", globals["indicativePrice"])
	}
	if _, ok := globals["Object"]; ok {
		t.Error("standard globals must be filtered out")
	}
}
