package dom

import (
	"fmt"
	"net/url"
)

// Location is the current page address.
type Location struct {
	u *url.URL
}

// ParseLocation parses raw into a Location.
func ParseLocation(raw string) (*Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing location %q: %w", raw, err)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return &Location{u: u}, nil
}

// Path returns the URL path ("/" when empty).
func (l *Location) Path() string { return l.u.Path }

// Query returns the first value of the query parameter key.
func (l *Location) Query(key string) (string, bool) {
	q := l.u.Query()
	if !q.Has(key) {
		return "", false
	}
	return q.Get(key), true
}

// Search returns the raw query string including the leading "?", or "".
func (l *Location) Search() string {
	if l.u.RawQuery == "" {
		return ""
	}
	return "?" + l.u.RawQuery
}

// String returns the full URL.
func (l *Location) String() string { return l.u.String() }

// Resolve resolves ref against the location, the way a link href would be.
func (l *Location) Resolve(ref string) (*url.URL, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	return l.u.ResolveReference(r), nil
}

type historyEntry struct {
	loc   *Location
	state any
}

// History is the session history of a document.
type History struct {
	doc     *Document
	entries []historyEntry
	index   int
}

// Len returns the number of history entries.
func (h *History) Len() int { return len(h.entries) }

// PushState adds an entry for rawURL (resolved against the current location)
// and makes it current, dropping any forward entries. No popstate is fired.
func (h *History) PushState(state any, rawURL string) error {
	u, err := h.doc.Location.Resolve(rawURL)
	if err != nil {
		return fmt.Errorf("push state %q: %w", rawURL, err)
	}
	loc := &Location{u: u}
	h.entries = append(h.entries[:h.index+1], historyEntry{loc: loc, state: state})
	h.index = len(h.entries) - 1
	h.doc.Location = loc
	return nil
}

// Back moves one entry back and fires popstate. It reports whether it moved.
func (h *History) Back() bool { return h.Go(-1) }

// Forward moves one entry forward and fires popstate.
func (h *History) Forward() bool { return h.Go(1) }

// Go moves delta entries and fires popstate on the window.
func (h *History) Go(delta int) bool {
	i := h.index + delta
	if delta == 0 || i < 0 || i >= len(h.entries) {
		return false
	}
	h.index = i
	h.doc.Location = h.entries[i].loc
	h.doc.DispatchWindow(&Event{Type: EventPopState, State: h.entries[i].state})
	return true
}
