package crawler

import "testing"

func TestVisitedSetNormalizesVariants(t *testing.T) {
	v := NewVisitedSet()

	if !v.Add("https://Example.com:443/cat/") {
		t.Fatal("first add should report new")
	}
	if v.Add("https://example.com/cat") {
		t.Error("normalized variant should be seen already")
	}
	if v.Add("https://example.com/cat#top") {
		t.Error("fragment variant should be seen already")
	}
	if v.Len() != 1 {
		t.Errorf("expected one distinct URL, got %d", v.Len())
	}
}

func TestVisitedSetTerminatesCyclicTraversal(t *testing.T) {
	// page-link graph with a cycle back to the start
	graph := map[string][]string{
		"https://site.test/p1": {"https://site.test/p2"},
		"https://site.test/p2": {"https://site.test/p3", "https://site.test/p1"},
		"https://site.test/p3": {"https://site.test/p1", "https://site.test/p2"},
	}

	v := NewVisitedSet()
	start := "https://site.test/p1"
	v.Add(start)
	queue := []string{start}

	visits := 0
	for len(queue) > 0 {
		page := queue[0]
		queue = queue[1:]
		visits++
		if visits > len(graph) {
			t.Fatal("traversal did not terminate on the cycle")
		}
		for _, link := range graph[page] {
			if v.Add(link) {
				queue = append(queue, link)
			}
		}
	}

	if visits != len(graph) {
		t.Errorf("expected each distinct URL visited exactly once, got %d visits", visits)
	}
}
