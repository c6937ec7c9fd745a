// Package selector implements resilient element resolution: a logical target
// is located by trying an ordered chain of structural matchers until one
// produces a non-empty match set.
package selector

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Matcher is one candidate in a chain: either a CSS query expression, or an
// attribute-equality fallback {tag, attr, value} compiled to tag[attr='value'].
type Matcher struct {
	Query string `yaml:"query,omitempty"`
	Tag   string `yaml:"tag,omitempty"`
	Attr  string `yaml:"attr,omitempty"`
	Value string `yaml:"value,omitempty"`
}

// Css builds a query-expression matcher.
func Css(query string) Matcher {
	return Matcher{Query: query}
}

// Attr builds an attribute-equality fallback matcher. An empty tag matches
// any element.
func Attr(tag, attr, value string) Matcher {
	return Matcher{Tag: tag, Attr: attr, Value: value}
}

// Expr returns the CSS expression this matcher evaluates.
func (m Matcher) Expr() string {
	if m.Query != "" {
		return m.Query
	}
	tag := m.Tag
	if tag == "" {
		tag = "*"
	}
	return fmt.Sprintf("%s[%s='%s']", tag, m.Attr, m.Value)
}

// UnmarshalYAML accepts either a plain scalar (a query expression) or a
// mapping with tag/attr/value keys, so profile files can mix both forms.
func (m *Matcher) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Query = node.Value
		return nil
	}

	type plain Matcher
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*m = Matcher(p)
	if m.Query == "" && m.Attr == "" {
		return fmt.Errorf("matcher needs either a query or an attr fallback")
	}
	return nil
}

// Chain is a ranked list of matchers for one logical target.
type Chain []Matcher

// NotFoundError reports that no candidate in a chain matched.
type NotFoundError struct {
	Target string
	Tried  int
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no selector matched for %q (%d candidates tried)", e.Target, e.Tried)
}

// Resolve tries each matcher in order against the given scope and returns the
// first non-empty match set. Matching is scoped: candidates are evaluated
// within scope only, never against the whole document, so sibling subtrees
// cannot produce false positives. Pure with respect to the snapshot queried.
func Resolve(target string, chain Chain, scope *goquery.Selection) (*goquery.Selection, error) {
	for _, m := range chain {
		sel := scope.Find(m.Expr())
		if sel.Length() > 0 {
			log.Debug().
				Str("target", target).
				Str("selector", m.Expr()).
				Int("matches", sel.Length()).
				Msg("Selector resolved")
			return sel, nil
		}
	}
	return nil, &NotFoundError{Target: target, Tried: len(chain)}
}

// First resolves the chain and returns only the first matched element.
func First(target string, chain Chain, scope *goquery.Selection) (*goquery.Selection, error) {
	sel, err := Resolve(target, chain, scope)
	if err != nil {
		return nil, err
	}
	return sel.First(), nil
}
