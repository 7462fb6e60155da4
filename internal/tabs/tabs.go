// Package tabs switches between panes of a tab set, optionally keeping the
// selection in the tab query parameter.
package tabs

import (
	"fmt"
	"net/url"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/pagekit/internal/dom"
)

const (
	// KeyAttr is the data attribute holding a pane or link key.
	KeyAttr = "tab"
	// QueryParam is the query parameter the selection is synced to.
	QueryParam = "tab"
	// SelectedClass marks the nav link of the active pane.
	SelectedClass = "selected"
)

// Set is an initialized tab set.
type Set struct {
	doc       *dom.Document
	panes     []*html.Node
	links     []*html.Node
	syncToURL bool
	active    string
	unbind    []func()
}

// Init collects the panes and nav links matching the selectors under scope,
// activates the initial key and binds the nav links.
func Init(doc *dom.Document, scope *html.Node, paneSelector, navSelector string, syncToURL bool) (*Set, error) {
	panes, err := dom.QueryAll(scope, paneSelector)
	if err != nil {
		return nil, fmt.Errorf("tabs: pane selector: %w", err)
	}
	links, err := dom.QueryAll(scope, navSelector)
	if err != nil {
		return nil, fmt.Errorf("tabs: nav selector: %w", err)
	}
	s := &Set{doc: doc, panes: panes, links: links, syncToURL: syncToURL}

	for _, link := range links {
		s.unbind = append(s.unbind, doc.AddEventListener(link, dom.EventClick, s.handleClick))
	}
	if syncToURL {
		s.unbind = append(s.unbind, doc.AddWindowListener(dom.EventPopState, func(*dom.Event) { s.Refresh() }))
	}
	s.Refresh()
	return s, nil
}

func (s *Set) handleClick(e *dom.Event) {
	e.PreventDefault()
	key := dom.Data(e.CurrentTarget, KeyAttr)
	if s.syncToURL {
		q := url.Values{QueryParam: {key}}
		if err := s.doc.History.PushState(nil, "?"+q.Encode()); err != nil {
			return
		}
	}
	s.Activate(key)
}

// initialKey returns the tab query parameter when syncing, else the key of
// the first pane.
func (s *Set) initialKey() string {
	if s.syncToURL {
		if key, ok := s.doc.Location.Query(QueryParam); ok && key != "" {
			return key
		}
	}
	if len(s.panes) == 0 {
		return ""
	}
	return dom.Data(s.panes[0], KeyAttr)
}

// Refresh re-derives the active key from the location and activates it.
func (s *Set) Refresh() { s.Activate(s.initialKey()) }

// Activate selects the link and shows the pane whose key is key, deselecting
// and hiding all others. An unknown key leaves nothing selected.
func (s *Set) Activate(key string) {
	s.active = key
	for _, link := range s.links {
		dom.ToggleClass(link, SelectedClass, dom.Data(link, KeyAttr) == key)
	}
	for _, pane := range s.panes {
		if dom.Data(pane, KeyAttr) == key {
			dom.Show(pane)
		} else {
			dom.Hide(pane)
		}
	}
}

// Active returns the last activated key.
func (s *Set) Active() string { return s.active }

// Keys returns the pane keys in document order.
func (s *Set) Keys() []string {
	keys := make([]string, len(s.panes))
	for i, p := range s.panes {
		keys[i] = dom.Data(p, KeyAttr)
	}
	return keys
}

// Close detaches the set's listeners.
func (s *Set) Close() {
	for _, fn := range s.unbind {
		fn()
	}
	s.unbind = nil
}
