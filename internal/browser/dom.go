package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed DOM snapshot.
type Document struct {
	doc *goquery.Document
}

func ParseHTML(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{doc: doc}, nil
}

// QueryAll returns matches in document order.
func (d *Document) QueryAll(selector string) []Element {
	return queryAll(d.doc.Selection, selector)
}

type domElement struct {
	sel *goquery.Selection
}

func (e domElement) Text() string {
	var b strings.Builder
	for _, n := range e.sel.Nodes {
		renderText(&b, n)
	}
	return normalizeSpace(b.String())
}

func (e domElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e domElement) QueryAll(selector string) []Element {
	return queryAll(e.sel, selector)
}

func queryAll(root *goquery.Selection, selector string) []Element {
	parts := parseSelector(selector)
	if len(parts) == 0 {
		return nil
	}

	hits := map[*html.Node]bool{}
	for _, p := range parts {
		found := root.Find(p.CSS)
		if p.Text != "" {
			text := p.Text
			found = found.FilterFunction(func(_ int, s *goquery.Selection) bool {
				return strings.Contains(s.Text(), text)
			})
		}
		for _, n := range found.Nodes {
			hits[n] = true
		}
	}

	// walk the subtree once so mixed lists come back in document order
	out := make([]Element, 0, len(hits))
	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		if hits[s.Nodes[0]] {
			out = append(out, domElement{sel: s})
		}
	})
	return out
}

// breaking elements render with surrounding whitespace, like innerText
// separates table cells and blocks.
var breaking = map[string]bool{
	"br": true, "div": true, "li": true, "p": true,
	"td": true, "th": true, "tr": true, "table": true,
}

func renderText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	brk := n.Type == html.ElementNode && breaking[n.Data]
	if brk {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(b, c)
	}
	if brk {
		b.WriteByte(' ')
	}
}

// normalizeSpace trims and collapses whitespace runs into single spaces,
// approximating what a rendered innerText looks like on one line.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
