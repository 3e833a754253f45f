package scraper

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Locator finds the first element matching a CSS selector.
type Locator interface {
	Locate(selector string) (Node, bool)
}

// Node is one element of a parsed HTML tree.
type Node interface {
	Locator
	// All returns every descendant matching selector, in document order.
	All(selector string) []Node
	// Child returns the index-th direct child matching selector.
	Child(selector string, index int) (Node, bool)
	// Text returns the combined text of the node and its descendants.
	Text() string
	Attr(name string) (string, bool)
}

// ParseHTML parses body into a document Node.
func ParseHTML(body []byte) (Node, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyDocument
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if doc.Children().Length() == 0 {
		return nil, ErrEmptyDocument
	}
	return selectionNode{sel: doc.Selection}, nil
}

type selectionNode struct {
	sel *goquery.Selection
}

func (n selectionNode) Locate(selector string) (Node, bool) {
	found := n.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, false
	}
	return selectionNode{sel: found}, true
}

func (n selectionNode) All(selector string) []Node {
	found := n.sel.Find(selector)
	out := make([]Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		out = append(out, selectionNode{sel: s})
	})
	return out
}

func (n selectionNode) Child(selector string, index int) (Node, bool) {
	children := n.sel.ChildrenFiltered(selector)
	if index < 0 || index >= children.Length() {
		return nil, false
	}
	return selectionNode{sel: children.Eq(index)}, true
}

func (n selectionNode) Text() string {
	return n.sel.Text()
}

func (n selectionNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}
