// Package modal opens and closes overlay dialogs over a dimmed backdrop.
package modal

import (
	"errors"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/pagekit/internal/dom"
	"github.com/ziadkadry99/pagekit/internal/jsonml"
)

// ErrAlreadyOpen is returned by Open while another modal is showing.
var ErrAlreadyOpen = errors.New("modal: already open")

const (
	// BackdropID is the id of the backdrop element.
	BackdropID = "modal-grayout"
	// CloseSelector matches close affordances inside a modal.
	CloseSelector = ".close-modal"
)

// Controller manages the single open modal of a document.
type Controller struct {
	doc      *dom.Document
	log      *slog.Logger
	open     *html.Node
	backdrop *html.Node
	unbind   []func()
}

// New returns a Controller for doc. A nil logger discards output.
func New(doc *dom.Document, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{doc: doc, log: logger}
}

// Open shows wrapper above a backdrop and focuses it.
func (c *Controller) Open(wrapper *html.Node) error {
	if c.open != nil {
		return ErrAlreadyOpen
	}
	c.backdrop = c.ensureBackdrop()
	dom.Show(wrapper)
	c.open = wrapper
	c.doc.Focus(wrapper)

	closeModal := func(*dom.Event) { c.Close(wrapper) }
	c.unbind = append(c.unbind, c.doc.AddEventListener(c.backdrop, dom.EventClick, closeModal))
	for _, btn := range dom.Find(wrapper, CloseSelector) {
		c.unbind = append(c.unbind, c.doc.AddEventListener(btn, dom.EventClick, closeModal))
	}
	// Only a click on the wrapper itself, i.e. its margin, closes.
	c.unbind = append(c.unbind, c.doc.AddEventListener(wrapper, dom.EventClick, func(e *dom.Event) {
		if e.Target == wrapper {
			c.Close(wrapper)
		}
	}))
	c.unbind = append(c.unbind, c.doc.AddEventListener(c.doc.Root, dom.EventKeyDown, func(e *dom.Event) {
		if e.Key == "Escape" {
			c.Close(wrapper)
		}
	}))

	c.log.Debug("modal opened", "id", dom.ID(wrapper))
	return nil
}

// ensureBackdrop returns the backdrop, creating and appending it to the
// body only when none is in the document.
func (c *Controller) ensureBackdrop() *html.Node {
	if b := c.doc.GetElementByID(BackdropID); b != nil {
		return b
	}
	b := jsonml.MustBuild([]any{"div", map[string]any{"id": BackdropID}})
	dom.Append(c.doc.Body(), b)
	return b
}

// Close hides wrapper and removes the backdrop. Closing a modal that is not
// open only hides it.
func (c *Controller) Close(wrapper *html.Node) {
	dom.Hide(wrapper)
	if c.open == nil || wrapper != c.open {
		return
	}
	for _, unbind := range c.unbind {
		unbind()
	}
	c.unbind = nil
	dom.Remove(c.backdrop)
	c.backdrop = nil
	c.open = nil
	c.log.Debug("modal closed", "id", dom.ID(wrapper))
}

// IsOpen reports whether a modal is showing.
func (c *Controller) IsOpen() bool { return c.open != nil }

// Current returns the open modal, or nil.
func (c *Controller) Current() *html.Node { return c.open }

// Backdrop returns the backdrop element while a modal is open.
func (c *Controller) Backdrop() *html.Node { return c.backdrop }
