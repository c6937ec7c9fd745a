package crawler

import (
	urlutil "github.com/medline/expocrawl/internal/utils/url"
)

// VisitedSet tracks normalized URLs already fetched within one pagination
// traversal. The set only grows, which bounds any traversal over cyclic
// "next page" links to the number of distinct URLs reachable.
//
// A set is scoped to a single task and never shared, so it needs no locking.
type VisitedSet struct {
	seen map[string]struct{}
}

// NewVisitedSet creates an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Add normalizes the URL and records it. It returns false when the URL was
// already present, in which case the caller skips the link.
func (v *VisitedSet) Add(rawURL string) bool {
	key := urlutil.Normalize(rawURL)
	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

// Contains reports whether the URL has been recorded.
func (v *VisitedSet) Contains(rawURL string) bool {
	_, ok := v.seen[urlutil.Normalize(rawURL)]
	return ok
}

// Len returns the number of distinct URLs recorded.
func (v *VisitedSet) Len() int {
	return len(v.seen)
}
