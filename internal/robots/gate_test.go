package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestGateDisallowedPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	g := New(Options{Client: server.Client(), UserAgent: "expocrawl"})

	allowed, err := g.Allowed(context.Background(), server.URL+"/public/page")
	if err != nil {
		t.Fatalf("allowed check failed: %v", err)
	}
	if !allowed {
		t.Error("public path should be allowed")
	}

	allowed, err = g.Allowed(context.Background(), server.URL+"/private/page")
	if err != nil {
		t.Fatalf("allowed check failed: %v", err)
	}
	if allowed {
		t.Error("private path should be denied")
	}
}

func TestGateCachesPerHost(t *testing.T) {
	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt32(&fetches, 1)
			w.Write([]byte("User-agent: *\nAllow: /\n"))
		}
	}))
	defer server.Close()

	g := New(Options{Client: server.Client()})

	for i := 0; i < 5; i++ {
		if _, err := g.Allowed(context.Background(), server.URL+"/page"); err != nil {
			t.Fatalf("allowed check failed: %v", err)
		}
	}

	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("expected a single robots.txt fetch, got %d", n)
	}
}

func TestGateDefaultsToAllowOnFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	server.Close() // connection refused from here on

	g := New(Options{})
	allowed, err := g.Allowed(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("allowed check failed: %v", err)
	}
	if !allowed {
		t.Error("unreachable robots endpoint must default to allow")
	}
}
