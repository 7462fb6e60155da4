package dom

import (
	"fmt"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	selMu    sync.Mutex
	selCache = map[string]cascadia.SelectorGroup{}
)

// compile parses sel once and caches the compiled group.
func compile(sel string) (cascadia.SelectorGroup, error) {
	selMu.Lock()
	defer selMu.Unlock()
	if g, ok := selCache[sel]; ok {
		return g, nil
	}
	g, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, fmt.Errorf("parsing selector %q: %w", sel, err)
	}
	selCache[sel] = g
	return g, nil
}

// QueryAll returns the descendants of scope matching sel, in document order.
func QueryAll(scope *html.Node, sel string) ([]*html.Node, error) {
	g, err := compile(sel)
	if err != nil {
		return nil, err
	}
	return cascadia.QueryAll(scope, g), nil
}

// Query returns the first descendant of scope matching sel, or nil.
func Query(scope *html.Node, sel string) (*html.Node, error) {
	g, err := compile(sel)
	if err != nil {
		return nil, err
	}
	return cascadia.Query(scope, g), nil
}

// Find is QueryAll for selectors known to be valid. Invalid selectors match nothing.
func Find(scope *html.Node, sel string) []*html.Node {
	nodes, _ := QueryAll(scope, sel)
	return nodes
}

// First is Query for selectors known to be valid.
func First(scope *html.Node, sel string) *html.Node {
	n, _ := Query(scope, sel)
	return n
}
