package modal

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/pagekit/internal/dom"
	"github.com/ziadkadry99/pagekit/internal/jsonml"
)

// Confirm shows the .confirmation-modal found in scope with message (a string,
// jsonml descriptor or node) and runs yes or no when the matching button is
// clicked. Earlier bindings of the buttons are dropped, so only the callbacks
// of the latest Confirm fire.
func (c *Controller) Confirm(scope *html.Node, message any, yes, no func()) error {
	m := dom.First(scope, ".confirmation-modal")
	if m == nil {
		return fmt.Errorf("confirm: no .confirmation-modal in scope")
	}
	content, err := jsonml.Build([]any{"span", message})
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if msg := dom.First(m, ".confirmation-message"); msg != nil {
		dom.Empty(msg)
		dom.Append(msg, content)
	}
	dom.Show(m)

	bind := func(sel string, fn func()) {
		btn := dom.First(m, sel)
		if btn == nil {
			return
		}
		c.doc.Off(btn, dom.EventClick)
		c.doc.AddEventListener(btn, dom.EventClick, func(*dom.Event) {
			if fn != nil {
				fn()
			}
			dom.Hide(m)
		})
	}
	bind(".yes", yes)
	bind(".no", no)
	return nil
}
