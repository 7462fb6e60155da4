package modal

import (
	"errors"
	"testing"

	"github.com/ziadkadry99/pagekit/internal/dom"
)

const modalPage = `<html><body>
<div id="edit-team" class="modal" style="display: none">
  <div class="content"><p>Edit</p><button class="close-modal">Cancel</button></div>
</div>
<div id="other" class="modal" style="display: none"></div>
<div class="confirmation-modal" style="display: none">
  <div class="confirmation-message"></div>
  <button class="yes">Yes</button><button class="no">No</button>
</div>
</body></html>`

func setup(t *testing.T) (*Controller, *dom.Document) {
	t.Helper()
	doc, err := dom.Parse(modalPage, "https://example.com/")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return New(doc, nil), doc
}

func backdrops(doc *dom.Document) int {
	return len(dom.Find(doc.Root, "#"+BackdropID))
}

func TestOpenClose(t *testing.T) {
	c, doc := setup(t)
	m := doc.GetElementByID("edit-team")

	if err := c.Open(m); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !dom.Visible(m) || backdrops(doc) != 1 {
		t.Fatal("modal should be visible over one backdrop")
	}
	if doc.ActiveElement() != m {
		t.Error("focus should move into the modal")
	}

	c.Close(m)
	if dom.Visible(m) || backdrops(doc) != 0 {
		t.Error("modal should be hidden and backdrop gone")
	}
	c.Close(m)
	if c.IsOpen() {
		t.Error("closing twice should be a no-op")
	}
}

func TestOpenRejectsSecond(t *testing.T) {
	c, doc := setup(t)
	if err := c.Open(doc.GetElementByID("edit-team")); err != nil {
		t.Fatal(err)
	}
	err := c.Open(doc.GetElementByID("other"))
	if !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("err = %v, want ErrAlreadyOpen", err)
	}
	if backdrops(doc) != 1 {
		t.Errorf("backdrops = %d, want 1", backdrops(doc))
	}
	if dom.Visible(doc.GetElementByID("other")) {
		t.Error("second modal should stay hidden")
	}
}

func TestCloseTriggers(t *testing.T) {
	tests := []struct {
		name   string
		act    func(doc *dom.Document, c *Controller)
		closed bool
	}{
		{"backdrop click", func(doc *dom.Document, c *Controller) { doc.Click(c.Backdrop()) }, true},
		{"close button", func(doc *dom.Document, c *Controller) { doc.Click(dom.First(doc.Root, "#edit-team .close-modal")) }, true},
		{"wrapper margin", func(doc *dom.Document, c *Controller) { doc.Click(doc.GetElementByID("edit-team")) }, true},
		{"content click", func(doc *dom.Document, c *Controller) { doc.Click(dom.First(doc.Root, "#edit-team p")) }, false},
		{"escape", func(doc *dom.Document, c *Controller) { doc.KeyDown("Escape") }, true},
		{"other key", func(doc *dom.Document, c *Controller) { doc.KeyDown("Enter") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, doc := setup(t)
			m := doc.GetElementByID("edit-team")
			if err := c.Open(m); err != nil {
				t.Fatal(err)
			}
			tt.act(doc, c)
			if c.IsOpen() == tt.closed {
				t.Errorf("open = %v, want closed = %v", c.IsOpen(), tt.closed)
			}
			if tt.closed && (backdrops(doc) != 0 || dom.Visible(m)) {
				t.Error("modal not fully closed")
			}
		})
	}
}

func TestReopenAfterClose(t *testing.T) {
	c, doc := setup(t)
	m := doc.GetElementByID("edit-team")
	for i := 0; i < 3; i++ {
		if err := c.Open(m); err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		c.Close(m)
	}
	if n := doc.ListenerCount(doc.Root, dom.EventKeyDown); n != 0 {
		t.Errorf("leaked keydown listeners: %d", n)
	}
}

func TestConfirm(t *testing.T) {
	c, doc := setup(t)
	var got []string

	if err := c.Confirm(doc.Root, "Delete it?", func() { got = append(got, "first-yes") }, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Confirm(doc.Root, []any{"b", "Really?"}, func() { got = append(got, "yes") }, func() { got = append(got, "no") }); err != nil {
		t.Fatal(err)
	}
	m := dom.First(doc.Root, ".confirmation-modal")
	if !dom.Visible(m) {
		t.Fatal("confirmation should be visible")
	}
	if txt := dom.Text(dom.First(m, ".confirmation-message")); txt != "Really?" {
		t.Errorf("message = %q", txt)
	}

	doc.Click(dom.First(m, ".yes"))
	if len(got) != 1 || got[0] != "yes" {
		t.Errorf("callbacks = %v", got)
	}
	if dom.Visible(m) {
		t.Error("confirmation should hide after answering")
	}
}

func TestConfirmMissing(t *testing.T) {
	c, doc := setup(t)
	if err := c.Confirm(doc.GetElementByID("other"), "x", nil, nil); err == nil {
		t.Error("expected error when no confirmation modal is in scope")
	}
}
