// Package dom models a browser document on top of golang.org/x/net/html:
// a node tree, selector queries, event listeners with bubbling, focus,
// location and history, and a single-threaded timer loop.
//
// A Document is not safe for concurrent use. Work coming from other
// goroutines must be handed to the loop with Loop.Post.
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Document is a live page.
type Document struct {
	// Root is the html.DocumentNode at the top of the tree.
	Root     *html.Node
	Location *Location
	History  *History
	Loop     *Loop

	listeners    map[*html.Node]map[string][]listenerEntry
	nextListener uint64
	active       *html.Node
}

// Parse builds a document from markup loaded at rawURL.
func Parse(markup, rawURL string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return newDocument(root, rawURL)
}

// New returns an empty document (html, head and body) at rawURL.
func New(rawURL string) (*Document, error) {
	return Parse("<!DOCTYPE html><html><head></head><body></body></html>", rawURL)
}

func newDocument(root *html.Node, rawURL string) (*Document, error) {
	loc, err := ParseLocation(rawURL)
	if err != nil {
		return nil, err
	}
	d := &Document{
		Root:      root,
		Location:  loc,
		Loop:      NewLoop(),
		listeners: map[*html.Node]map[string][]listenerEntry{},
	}
	d.History = &History{doc: d, entries: []historyEntry{{loc: loc}}}
	return d, nil
}

// Body returns the body element, creating one under <html> if missing.
func (d *Document) Body() *html.Node {
	if b := First(d.Root, "body"); b != nil {
		return b
	}
	parent := First(d.Root, "html")
	if parent == nil {
		parent = d.Root
	}
	b := NewElement("body")
	parent.AppendChild(b)
	return b
}

// GetElementByID returns the attached element with the given id, or nil.
func (d *Document) GetElementByID(id string) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && ID(n) == id {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.Root)
	return found
}

// Attached reports whether n belongs to the document tree.
func (d *Document) Attached(n *html.Node) bool {
	return n != nil && Contains(d.Root, n)
}

// QueryAll runs sel over the whole document.
func (d *Document) QueryAll(sel string) ([]*html.Node, error) {
	return QueryAll(d.Root, sel)
}

// Focus moves keyboard focus to n and fires a focus event on it.
func (d *Document) Focus(n *html.Node) {
	d.active = n
	d.Dispatch(n, &Event{Type: EventFocus})
}

// ActiveElement returns the focused element, or the body when nothing
// attached has focus.
func (d *Document) ActiveElement() *html.Node {
	if d.active != nil && d.Attached(d.active) {
		return d.active
	}
	return d.Body()
}

// Render serializes the whole document.
func (d *Document) Render() string {
	return Render(d.Root)
}
