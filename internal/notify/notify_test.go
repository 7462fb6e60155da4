package notify

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/pagekit/internal/dom"
	"github.com/ziadkadry99/pagekit/internal/jsonml"
)

func setupCenter(t *testing.T, rawURL string) (*Center, *dom.Document) {
	t.Helper()
	doc, err := dom.Parse(`<html><body><div id="banner"></div></body></html>`, rawURL)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return New(doc, Timeouts{}, nil), doc
}

func TestDefaultTimeouts(t *testing.T) {
	c, _ := setupCenter(t, "https://example.com/")
	tests := []struct {
		opts []Option
		kind Kind
		want time.Duration
	}{
		{nil, KindNotice, 5 * time.Second},
		{[]Option{WithKind(KindError)}, KindError, 10 * time.Second},
		{[]Option{WithKind(KindSuccess)}, KindSuccess, 5 * time.Second},
		{[]Option{WithKind("bogus")}, KindNotice, 5 * time.Second},
		{[]Option{WithKind(KindError), WithTimeout(-1)}, KindError, -1},
	}
	for _, tt := range tests {
		n, err := c.Show("hi", tt.opts...)
		if err != nil {
			t.Fatalf("Show: %v", err)
		}
		if n.Kind != tt.kind || n.Timeout != tt.want {
			t.Errorf("kind=%s timeout=%v, want %s %v", n.Kind, n.Timeout, tt.kind, tt.want)
		}
	}
}

func TestShowRendersPlaceholderAndDialog(t *testing.T) {
	c, doc := setupCenter(t, "https://example.com/")
	n, err := c.Show("Saved.", WithKind(KindSuccess))
	if err != nil {
		t.Fatalf("Show: %v", err)
	}

	area := doc.GetElementByID(AreaID)
	if area == nil || doc.Body().FirstChild != area {
		t.Fatal("notification area should be the first child of body")
	}
	if n.Placeholder.Parent != area {
		t.Error("placeholder should sit in the page flow")
	}
	if n.Dialog.Parent == nil || !dom.HasClass(n.Dialog.Parent, FixedClass) {
		t.Error("dialog should sit in the fixed container")
	}
	if dom.ID(n.Dialog) != "notification-"+n.ID {
		t.Errorf("dialog id = %q", dom.ID(n.Dialog))
	}
	if got := dom.Find(doc.Root, ".notification.notification-success"); len(got) != 2 {
		t.Errorf("fragments = %d, want 2", len(got))
	}
	if len(dom.Find(doc.Root, "."+CloseClass)) != 2 {
		t.Error("each fragment needs a close button")
	}
}

func TestAreaCreatedOnce(t *testing.T) {
	c, doc := setupCenter(t, "https://example.com/")
	for i := 0; i < 3; i++ {
		if _, err := c.Show(fmt.Sprintf("n%d", i)); err != nil {
			t.Fatalf("Show: %v", err)
		}
	}
	if got := len(dom.Find(doc.Root, "#"+AreaID)); got != 1 {
		t.Errorf("areas = %d, want 1", got)
	}
	if got := len(dom.Find(doc.Root, "."+FixedClass)); got != 1 {
		t.Errorf("fixed containers = %d, want 1", got)
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestReusesExistingArea(t *testing.T) {
	doc, err := dom.Parse(`<html><body><div id="notification-area"></div></body></html>`, "https://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	c := New(doc, Timeouts{}, nil)
	if _, err := c.Show("x"); err != nil {
		t.Fatal(err)
	}
	if got := len(dom.Find(doc.Root, "#"+AreaID)); got != 1 {
		t.Errorf("areas = %d, want 1", got)
	}
	if dom.First(doc.Root, "#notification-area ."+FixedClass) == nil {
		t.Error("fixed container should be added to the existing area")
	}
}

func TestCloseButtonRemovesBothAndCallsOnce(t *testing.T) {
	c, doc := setupCenter(t, "https://example.com/")
	calls := 0
	n, err := c.Show("bye", WithOnClose(func() { calls++ }))
	if err != nil {
		t.Fatal(err)
	}

	doc.Click(dom.First(n.Dialog, "."+CloseClass))
	if doc.Attached(n.Dialog) || doc.Attached(n.Placeholder) {
		t.Error("both fragments should be removed")
	}
	// The auto-dismiss deadline passing afterwards must be harmless.
	doc.Loop.Advance(time.Minute)
	n.Close()
	if calls != 1 {
		t.Errorf("onClose calls = %d, want 1", calls)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestTimeoutCloses(t *testing.T) {
	c, doc := setupCenter(t, "https://example.com/")
	closed := false
	n, err := c.Show("oops", WithKind(KindError), WithOnClose(func() { closed = true }))
	if err != nil {
		t.Fatal(err)
	}
	doc.Loop.Advance(9999 * time.Millisecond)
	if closed || !doc.Attached(n.Dialog) {
		t.Fatal("closed too early")
	}
	doc.Loop.Advance(time.Millisecond)
	if !closed || doc.Attached(n.Dialog) {
		t.Error("should close at 10s")
	}
}

func TestPersistentNeverTimesOut(t *testing.T) {
	c, doc := setupCenter(t, "https://example.com/")
	n, err := c.Show("stay", WithTimeout(0))
	if err != nil {
		t.Fatal(err)
	}
	doc.Loop.Advance(24 * time.Hour)
	if n.Closed() || doc.Loop.Pending() != 0 {
		t.Error("persistent notification should not schedule a timeout")
	}
}

func TestLinkToCurrentPageIsSuppressed(t *testing.T) {
	c, doc := setupCenter(t, "https://example.com/~alice/emails/")
	called := false
	n, err := c.Show([]any{"span", "Add an email ", []any{"a", map[string]any{"href": "/~alice/emails/"}, "here"}},
		WithOnClose(func() { called = true }))
	if err != nil {
		t.Fatal(err)
	}
	if n != nil {
		t.Error("expected no notification")
	}
	if !called {
		t.Error("onClose should run immediately")
	}
	if doc.GetElementByID(AreaID) != nil {
		t.Error("nothing should be rendered")
	}
}

func TestTwoLinksAreNotSuppressed(t *testing.T) {
	c, _ := setupCenter(t, "https://example.com/a")
	n, err := c.Show([]any{"span",
		[]any{"a", map[string]any{"href": "/a"}, "one"},
		[]any{"a", map[string]any{"href": "/a"}, "two"},
	})
	if err != nil || n == nil {
		t.Fatalf("expected a notification, got %v %v", n, err)
	}
}

func TestClearHides(t *testing.T) {
	c, doc := setupCenter(t, "https://example.com/")
	c.Show("a")
	c.Show("b")
	c.Clear()
	all := dom.Find(doc.Root, ".notification")
	if len(all) != 4 {
		t.Fatalf("fragments = %d, want 4", len(all))
	}
	for _, n := range all {
		if dom.Visible(n) {
			t.Error("fragment should be hidden")
		}
	}
}

func TestUniqueIDs(t *testing.T) {
	c, _ := setupCenter(t, "https://example.com/")
	ids := []string{"dup", "dup", "other"}
	c.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	a, _ := c.Show("a")
	b, _ := c.Show("b")
	if a.ID == b.ID {
		t.Errorf("ids collide: %s", a.ID)
	}
	if randomID() == randomID() {
		t.Error("random ids should differ")
	}
}

func TestInvalidDescriptor(t *testing.T) {
	c, doc := setupCenter(t, "https://example.com/")
	if _, err := c.Show([]any{}); err == nil {
		t.Fatal("expected error")
	}
	if doc.GetElementByID(AreaID) != nil {
		t.Error("nothing should be attached on error")
	}
}

func TestLoadPending(t *testing.T) {
	c, doc := setupCenter(t, "https://example.com/")
	pending := []Pending{
		{Name: "email_missing", Type: "notice", JSONML: json.RawMessage(`["span", "No email. ", ["a", {"href": "/~alice/emails/"}, "Add one"]]`)},
		{Name: "credit_card_failed", Type: "error", JSONML: json.RawMessage(`["span", "Card failed"]`)},
		{Name: "broken", Type: "error", JSONML: json.RawMessage(`[`)},
	}
	var removed []string
	err := c.LoadPending(pending, func(name string) { removed = append(removed, name) })
	if err == nil {
		t.Error("expected error for the broken descriptor")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	doc.Loop.Advance(time.Hour)
	if c.Len() != 2 {
		t.Error("pending notifications must persist")
	}

	for _, btn := range dom.Find(doc.Root, ".notification-error ."+CloseClass) {
		doc.Click(btn)
	}
	if len(removed) != 1 || removed[0] != "credit_card_failed" {
		t.Errorf("removed = %v", removed)
	}
}

func TestActiveAndCloseByID(t *testing.T) {
	c, _ := setupCenter(t, "https://example.com/")
	a, err := c.Show("a", WithTimeout(-1))
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Show("b", WithTimeout(-1))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Active(); len(got) != 2 {
		t.Fatalf("Active = %v", got)
	}

	if !c.Close(a.ID) {
		t.Error("Close should report an active id")
	}
	if c.Close(a.ID) {
		t.Error("closing twice should report false")
	}
	if got := c.Active(); len(got) != 1 || got[0] != b.ID {
		t.Errorf("Active = %v, want [%s]", got, b.ID)
	}
}

func TestNestedNodeInBothFragments(t *testing.T) {
	c, _ := setupCenter(t, "https://example.com/")
	link := dom.NewElement("a")
	dom.SetAttr(link, "href", "/elsewhere")
	dom.Append(link, dom.NewText("details"))

	n, err := c.Show([]any{"span", "Saved. ", link})
	if err != nil || n == nil {
		t.Fatalf("Show = %v, %v", n, err)
	}
	for name, frag := range map[string]*html.Node{"dialog": n.Dialog, "placeholder": n.Placeholder} {
		a := dom.First(frag, `a[href="/elsewhere"]`)
		if a == nil {
			t.Errorf("%s lost the link", name)
			continue
		}
		if a == link {
			t.Errorf("%s holds the caller's node instead of a copy", name)
		}
	}
	if link.Parent != nil {
		t.Error("caller's node should not be moved")
	}
}

func TestSuppressedShowMovesNothing(t *testing.T) {
	c, doc := setupCenter(t, "https://example.com/here")
	banner := doc.GetElementByID("banner")
	link := dom.NewElement("a")
	dom.SetAttr(link, "href", "/here")
	dom.Append(banner, link)

	n, err := c.Show(jsonml.E("span", "See ", link))
	if err != nil || n != nil {
		t.Fatalf("Show = %v, %v; want suppressed", n, err)
	}
	if link.Parent != banner {
		t.Error("suppressed show detached the caller's node")
	}
}
