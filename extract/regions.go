// Package extract locates the supplementary text regions of the results
// page (statistics and progress summaries) in a DOM snapshot.
//
// Lookups match on an element's own text nodes, so an ancestor whose only
// match comes from a descendant is never selected.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Probe is one lookup: the first element (in document order) under Scope
// whose own text contains any of Keywords.
type Probe struct {
	// Scope is an optional CSS selector; only descendants of matching
	// elements are considered. Empty means the whole document.
	Scope    string
	Keywords []string
}

// StatsProbes locate the statistics summary.
var StatsProbes = []Probe{
	{Keywords: []string{"统计信息", "获取到的IP总数", "您的国家"}},
}

// ProgressProbes locate the progress summary, tried in order.
var ProgressProbes = []Probe{
	{Keywords: []string{"测试进度"}},
	{Keywords: []string{"完成"}},
	{Keywords: []string{"有效IP"}},
	{Scope: `div[class*="stats"]`, Keywords: []string{"测试"}},
}

// Document is a parsed page snapshot.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from raw HTML.
func Parse(rawHTML string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// First returns the trimmed text of the element matched by p.
func (d *Document) First(p Probe) (string, bool, error) {
	candidates := d.doc.Find("*")
	if p.Scope != "" {
		m, err := cascadia.Compile(p.Scope + " *")
		if err != nil {
			return "", false, fmt.Errorf("compile scope %q: %w", p.Scope, err)
		}
		candidates = d.doc.FindMatcher(m)
	}

	var found *goquery.Selection
	candidates.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if ownTextContains(s, p.Keywords) {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return "", false, nil
	}
	return strings.TrimSpace(found.Text()), true, nil
}

// FirstLonger tries probes in order and returns the first match whose
// trimmed text is longer than minRunes.
func (d *Document) FirstLonger(probes []Probe, minRunes int) (string, bool) {
	for _, p := range probes {
		text, ok, err := d.First(p)
		if err != nil || !ok {
			continue
		}
		if utf8.RuneCountInString(text) > minRunes {
			return text, true
		}
	}
	return "", false
}

// ownTextContains reports whether any direct text child of s contains one
// of the keywords. Script and style bodies are ignored.
func ownTextContains(s *goquery.Selection, keywords []string) bool {
	if s.Is("script, style, noscript") {
		return false
	}
	for _, n := range s.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.TextNode {
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(c.Data, kw) {
					return true
				}
			}
		}
	}
	return false
}

// Stats returns the statistics summary, or false when it is absent or empty.
func (d *Document) Stats() (string, bool) {
	return d.FirstLonger(StatsProbes, 0)
}

// Progress returns the progress summary. Matches of five runes or fewer
// are labels rather than summaries and are skipped.
func (d *Document) Progress() (string, bool) {
	return d.FirstLonger(ProgressProbes, 5)
}
