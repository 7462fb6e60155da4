package dom

import "golang.org/x/net/html"

// Event types dispatched by the kit.
const (
	EventClick    = "click"
	EventKeyDown  = "keydown"
	EventFocus    = "focus"
	EventPopState = "popstate"
	EventSubmit   = "submit"

	// Pointer events. They fire on the hovered node only and do not bubble.
	EventMouseEnter = "mouseenter"
	EventMouseLeave = "mouseleave"
)

// Event is a dispatched DOM event.
type Event struct {
	Type string
	// Target is the node the event was dispatched to. It is nil for window events.
	Target *html.Node
	// CurrentTarget is the node whose listener is running.
	CurrentTarget *html.Node
	// Key is set for keyboard events ("Escape", "Enter", ...).
	Key string
	// State carries the history state for popstate events.
	State any

	defaultPrevented bool
	stopped          bool
}

// PreventDefault marks the default action as cancelled.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// StopPropagation stops the event from bubbling past the current node.
func (e *Event) StopPropagation() { e.stopped = true }

// Listener handles an event.
type Listener func(*Event)

type listenerEntry struct {
	id uint64
	fn Listener
}

// window is the listener key used for window-level listeners.
var window = &html.Node{Type: html.DocumentNode, Data: "#window"}

// AddEventListener registers fn for events of type typ on n. The returned
// function removes the registration and is safe to call more than once.
func (d *Document) AddEventListener(n *html.Node, typ string, fn Listener) (remove func()) {
	if n == nil {
		n = window
	}
	d.nextListener++
	id := d.nextListener
	byType := d.listeners[n]
	if byType == nil {
		byType = map[string][]listenerEntry{}
		d.listeners[n] = byType
	}
	byType[typ] = append(byType[typ], listenerEntry{id: id, fn: fn})

	return func() {
		entries := d.listeners[n][typ]
		for i, e := range entries {
			if e.id == id {
				d.listeners[n][typ] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// AddWindowListener registers fn for window-level events such as popstate.
func (d *Document) AddWindowListener(typ string, fn Listener) (remove func()) {
	return d.AddEventListener(window, typ, fn)
}

// Off drops every listener of type typ registered on n.
func (d *Document) Off(n *html.Node, typ string) {
	if byType := d.listeners[n]; byType != nil {
		delete(byType, typ)
	}
}

// ListenerCount reports how many listeners of type typ are registered on n.
func (d *Document) ListenerCount(n *html.Node, typ string) int {
	if n == nil {
		n = window
	}
	return len(d.listeners[n][typ])
}

// Dispatch delivers ev to target and then bubbles it up through the
// ancestors of target and finally to the window. Listeners fire in
// registration order. It reports whether the default action should run.
func (d *Document) Dispatch(target *html.Node, ev *Event) bool {
	ev.Target = target
	var path []*html.Node
	for n := target; n != nil; n = n.Parent {
		path = append(path, n)
	}
	path = append(path, window)

	for _, n := range path {
		entries := d.listeners[n][ev.Type]
		if len(entries) == 0 {
			continue
		}
		if n == window {
			ev.CurrentTarget = nil
		} else {
			ev.CurrentTarget = n
		}
		// Listeners may unregister themselves while running.
		for _, e := range append([]listenerEntry(nil), entries...) {
			e.fn(ev)
		}
		if ev.stopped {
			break
		}
	}
	ev.CurrentTarget = nil
	return !ev.defaultPrevented
}

// DispatchWindow delivers ev to window listeners only.
func (d *Document) DispatchWindow(ev *Event) bool {
	for _, e := range append([]listenerEntry(nil), d.listeners[window][ev.Type]...) {
		e.fn(ev)
	}
	return !ev.defaultPrevented
}

// Click dispatches a click event on n.
func (d *Document) Click(n *html.Node) bool {
	return d.Dispatch(n, &Event{Type: EventClick})
}

// KeyDown dispatches a keydown event for key on the focused element, or on
// the document root when nothing has focus.
func (d *Document) KeyDown(key string) bool {
	target := d.active
	if target == nil || !Contains(d.Root, target) {
		target = d.Root
	}
	return d.Dispatch(target, &Event{Type: EventKeyDown, Key: key})
}

// MouseEnter dispatches a mouseenter event on n.
func (d *Document) MouseEnter(n *html.Node) bool {
	return d.fireAt(n, &Event{Type: EventMouseEnter})
}

// MouseLeave dispatches a mouseleave event on n.
func (d *Document) MouseLeave(n *html.Node) bool {
	return d.fireAt(n, &Event{Type: EventMouseLeave})
}

// fireAt runs the listeners of n alone, without bubbling.
func (d *Document) fireAt(n *html.Node, ev *Event) bool {
	ev.Target, ev.CurrentTarget = n, n
	for _, e := range append([]listenerEntry(nil), d.listeners[n][ev.Type]...) {
		e.fn(ev)
	}
	ev.CurrentTarget = nil
	return !ev.defaultPrevented
}
