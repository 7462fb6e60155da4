// Package notify shows toast notifications in a document.
//
// Every notification is rendered twice: a placeholder in the page flow that
// pushes the content down so the header stays visible, and a dialog in a
// fixed container that stays at the top of the viewport while scrolling.
package notify

import (
	"log/slog"
	"math/big"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/ziadkadry99/pagekit/internal/dom"
	"github.com/ziadkadry99/pagekit/internal/jsonml"
)

// Kind is the severity of a notification.
type Kind string

const (
	KindNotice  Kind = "notice"
	KindError   Kind = "error"
	KindSuccess Kind = "success"
)

// ParseKind maps s to a Kind. Unknown values fall back to KindNotice.
func ParseKind(s string) Kind {
	switch k := Kind(s); k {
	case KindNotice, KindError, KindSuccess:
		return k
	default:
		return KindNotice
	}
}

const (
	// AreaID is the id of the lazily created notification container.
	AreaID = "notification-area"
	// FixedClass marks the fixed-position container inside the area.
	FixedClass = "notifications-fixed"
	// CloseClass marks the close affordance of each fragment.
	CloseClass = "btn-close"
)

// Defaults returns the timeouts used when Show is called without WithTimeout.
func Defaults() Timeouts {
	return Timeouts{Notice: 5 * time.Second, Error: 10 * time.Second}
}

// Timeouts holds the default auto-dismiss delay per kind.
type Timeouts struct {
	Notice time.Duration
	Error  time.Duration
}

func (t Timeouts) forKind(k Kind) time.Duration {
	if k == KindError {
		return t.Error
	}
	return t.Notice
}

// Option configures a single Show call.
type Option func(*showOptions)

type showOptions struct {
	kind       Kind
	timeout    time.Duration
	hasTimeout bool
	onClose    func()
}

// WithKind sets the kind. Unknown kinds become KindNotice.
func WithKind(k Kind) Option {
	return func(o *showOptions) { o.kind = ParseKind(string(k)) }
}

// WithTimeout sets the auto-dismiss delay. Zero or negative persists the
// notification until it is closed.
func WithTimeout(d time.Duration) Option {
	return func(o *showOptions) {
		o.timeout = d
		o.hasTimeout = true
	}
}

// WithOnClose registers a callback run once when the notification closes,
// or immediately when it is suppressed.
func WithOnClose(fn func()) Option {
	return func(o *showOptions) { o.onClose = fn }
}

// Notification is a displayed notification.
type Notification struct {
	ID          string
	Kind        Kind
	Timeout     time.Duration
	Placeholder *html.Node
	Dialog      *html.Node

	center  *Center
	onClose func()
	timer   dom.TimerID
	closed  bool
}

// Closed reports whether the notification has been closed.
func (n *Notification) Closed() bool { return n.closed }

// Close removes both fragments and runs the close callback. Later calls,
// including a timeout firing after a manual close, do nothing.
func (n *Notification) Close() {
	if n.closed {
		return
	}
	n.closed = true
	n.center.doc.Loop.ClearTimeout(n.timer)
	dom.Remove(n.Placeholder)
	dom.Remove(n.Dialog)
	delete(n.center.active, n.ID)
	n.center.log.Debug("notification closed", "id", n.ID, "kind", n.Kind)
	if n.onClose != nil {
		n.onClose()
	}
}

// Center owns the notification area of one document.
type Center struct {
	doc      *dom.Document
	timeouts Timeouts
	log      *slog.Logger
	newID    func() string
	active   map[string]*Notification
	area     *html.Node
	fixed    *html.Node
}

// New returns a Center for doc. Zero timeouts take the Defaults value and a
// nil logger discards output.
func New(doc *dom.Document, timeouts Timeouts, logger *slog.Logger) *Center {
	def := Defaults()
	if timeouts.Notice == 0 {
		timeouts.Notice = def.Notice
	}
	if timeouts.Error == 0 {
		timeouts.Error = def.Error
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Center{
		doc:      doc,
		timeouts: timeouts,
		log:      logger,
		newID:    randomID,
		active:   map[string]*Notification{},
	}
}

// randomID returns a random base-36 id.
func randomID() string {
	u := uuid.New()
	return new(big.Int).SetBytes(u[:]).Text(36)
}

// Show renders content (a string, jsonml descriptor or *html.Node) and
// returns the displayed notification. It returns nil, nil when the content
// links only to the current page: the notification is suppressed and its
// close callback runs at once.
func (c *Center) Show(content any, opts ...Option) (*Notification, error) {
	o := showOptions{kind: KindNotice}
	for _, opt := range opts {
		opt(&o)
	}
	timeout := c.timeouts.forKind(o.kind)
	if o.hasTimeout {
		timeout = o.timeout
	}

	id := c.newID()
	for c.active[id] != nil {
		id = c.newID()
	}

	class := "notification notification-" + string(o.kind)
	dialog, err := jsonml.Build([]any{"div",
		map[string]any{"class": class, "id": "notification-" + id},
		[]any{"div", cloneDescriptor(content)},
	})
	if err != nil {
		return nil, err
	}

	if c.linksToCurrentPage(dialog) {
		c.log.Debug("notification suppressed, links to current page", "path", c.doc.Location.Path())
		if o.onClose != nil {
			o.onClose()
		}
		return nil, nil
	}

	placeholder, err := jsonml.Build([]any{"div",
		map[string]any{"class": class},
		[]any{"div", cloneDescriptor(content)},
	})
	if err != nil {
		return nil, err
	}

	c.ensureArea()
	dom.Prepend(c.area, placeholder)
	dom.Prepend(c.fixed, dialog)

	n := &Notification{
		ID:          id,
		Kind:        o.kind,
		Timeout:     timeout,
		Placeholder: placeholder,
		Dialog:      dialog,
		center:      c,
		onClose:     o.onClose,
	}
	for _, frag := range []*html.Node{placeholder, dialog} {
		btn := jsonml.MustBuild([]any{"span", map[string]any{"class": CloseClass}, "×"})
		dom.Append(frag, btn)
		c.doc.AddEventListener(btn, dom.EventClick, func(*dom.Event) { n.Close() })
	}
	if timeout > 0 {
		n.timer = c.doc.Loop.SetTimeout(timeout, n.Close)
	}
	c.active[id] = n
	c.log.Debug("notification shown", "id", id, "kind", o.kind, "timeout", timeout)
	return n, nil
}

// cloneDescriptor copies desc, cloning every *html.Node in it, so building
// the result never moves a node the caller owns.
func cloneDescriptor(desc any) any {
	switch d := desc.(type) {
	case *html.Node:
		if d == nil {
			return nil
		}
		return dom.Clone(d)
	case []any:
		out := make([]any, len(d))
		for i, v := range d {
			out[i] = cloneDescriptor(v)
		}
		return out
	case jsonml.Node:
		return cloneNode(d)
	case *jsonml.Node:
		if d == nil {
			return d
		}
		n := cloneNode(*d)
		return &n
	}
	return desc
}

func cloneNode(n jsonml.Node) jsonml.Node {
	children := make([]any, len(n.Children))
	for i, c := range n.Children {
		children[i] = cloneDescriptor(c)
	}
	n.Children = children
	return n
}

// linksToCurrentPage reports whether the dialog holds exactly one link and
// that link points at the current path.
func (c *Center) linksToCurrentPage(dialog *html.Node) bool {
	links := dom.Find(dialog, "a")
	if len(links) != 1 {
		return false
	}
	href, ok := dom.Attr(links[0], "href")
	if !ok {
		return false
	}
	target, err := c.doc.Location.Resolve(href)
	if err != nil {
		return false
	}
	return samePath(target, c.doc.Location.Path())
}

func samePath(u *url.URL, path string) bool {
	p := u.Path
	if p == "" {
		p = "/"
	}
	return p == path
}

// ensureArea creates the notification area once, reusing one that is
// already in the document.
func (c *Center) ensureArea() {
	if c.area != nil && c.doc.Attached(c.area) {
		return
	}
	if area := c.doc.GetElementByID(AreaID); area != nil {
		c.area = area
		c.fixed = dom.First(area, "."+FixedClass)
		if c.fixed == nil {
			c.fixed = jsonml.MustBuild([]any{"div", map[string]any{"class": FixedClass}})
			dom.Prepend(area, c.fixed)
		}
		return
	}
	c.fixed = jsonml.MustBuild([]any{"div", map[string]any{"class": FixedClass}})
	c.area = jsonml.MustBuild([]any{"div", map[string]any{"id": AreaID}, c.fixed})
	dom.Prepend(c.doc.Body(), c.area)
}

// Area returns the notification container, or nil before the first Show.
func (c *Center) Area() *html.Node { return c.area }

// Clear hides every notification in the document without removing it.
func (c *Center) Clear() {
	for _, n := range dom.Find(c.doc.Root, ".notification") {
		dom.Hide(n)
	}
}

// Close closes the notification with the given id, if it is still shown.
func (c *Center) Close(id string) bool {
	n, ok := c.active[id]
	if !ok {
		return false
	}
	n.Close()
	return true
}

// Get returns the active notification with the given id.
func (c *Center) Get(id string) (*Notification, bool) {
	n, ok := c.active[id]
	return n, ok
}

// Active returns the ids of the notifications currently shown, sorted.
func (c *Center) Active() []string {
	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of notifications currently shown.
func (c *Center) Len() int { return len(c.active) }
