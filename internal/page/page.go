// Package page wires the UI controllers of one document into a Kit and runs
// the bootstrap every page needs.
package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ziadkadry99/pagekit/internal/api"
	"github.com/ziadkadry99/pagekit/internal/dom"
	"github.com/ziadkadry99/pagekit/internal/modal"
	"github.com/ziadkadry99/pagekit/internal/notify"
	"github.com/ziadkadry99/pagekit/internal/tabs"
)

// Config holds the per-page settings.
type Config struct {
	// Username is the signed-in participant, empty for anonymous visitors.
	Username string
	// SupportEmail is named in generic error messages.
	SupportEmail string
	Timeouts     notify.Timeouts
	// Live subscribes to notifications added while the page is open.
	Live bool
	// Reload is called after a successful sign out.
	Reload func()
}

// Kit holds the controllers of one document.
type Kit struct {
	Doc    *dom.Document
	Notes  *notify.Center
	Modals *modal.Controller
	// Tabs is nil when the page has no tab set.
	Tabs *tabs.Set

	cfg    Config
	client *api.Client
	log    *slog.Logger
	wg     sync.WaitGroup
}

// New builds a Kit for doc. client may be nil for pages that never talk to
// the server.
func New(doc *dom.Document, cfg Config, client *api.Client, logger *slog.Logger) *Kit {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.SupportEmail == "" {
		cfg.SupportEmail = "support@gratipay.com"
	}
	return &Kit{
		Doc:    doc,
		Notes:  notify.New(doc, cfg.Timeouts, logger.With("component", "notify")),
		Modals: modal.New(doc, logger.With("component", "modal")),
		cfg:    cfg,
		client: client,
		log:    logger,
	}
}

// SignInCloseDelay is how long the sign-in dropdown stays open after the
// pointer leaves it.
const SignInCloseDelay = 100 * time.Millisecond

// Init runs the page bootstrap: long username styling, tabs, the sign-in
// dropdown, the sign-out link, pending notifications and, when configured,
// the live feed.
func (k *Kit) Init(ctx context.Context) error {
	k.adaptToLongUsernames()

	if scope := dom.First(k.Doc.Root, ".tabs"); scope != nil {
		set, err := tabs.Init(k.Doc, scope, ".tab", "#tab-nav a", true)
		if err != nil {
			return fmt.Errorf("init tabs: %w", err)
		}
		k.Tabs = set
	}

	k.signIn()
	k.signOut(ctx)

	if k.client == nil || k.cfg.Username == "" {
		return nil
	}
	pending, err := k.client.Notifications(ctx, k.cfg.Username)
	if err != nil {
		return fmt.Errorf("loading notifications: %w", err)
	}
	if err := k.Notes.LoadPending(pending, k.removeNotification(ctx)); err != nil {
		k.log.Warn("some notifications could not be shown", "error", err)
	}
	if k.cfg.Live {
		k.listen(ctx)
	}
	return nil
}

// adaptToLongUsernames shrinks the banner heading for long names.
func (k *Kit) adaptToLongUsernames() {
	h1 := dom.First(k.Doc.Root, "#banner h1")
	if h1 == nil {
		return
	}
	switch n := utf8.RuneCountInString(dom.Text(h1)); {
	case n > 16:
		dom.AddClass(h1, "really-long")
	case n > 8:
		dom.AddClass(h1, "long")
	}
}

func (k *Kit) removeNotification(ctx context.Context) func(name string) {
	return func(name string) {
		k.Go(ctx, func(ctx context.Context) error {
			_, err := k.client.RemoveNotification(ctx, k.cfg.Username, name)
			return err
		}, nil)
	}
}

// signIn keeps the sign-in dropdown open while hovered. A click on a
// dropdown toggle while the menu is open does nothing.
func (k *Kit) signIn() {
	dropdown := dom.First(k.Doc.Root, ".sign-in > .dropdown")
	if dropdown != nil {
		var closeTimer dom.TimerID
		k.Doc.AddEventListener(dropdown, dom.EventMouseEnter, func(*dom.Event) {
			k.Doc.Loop.ClearTimeout(closeTimer)
			dom.AddClass(dropdown, "open")
		})
		k.Doc.AddEventListener(dropdown, dom.EventMouseLeave, func(*dom.Event) {
			closeTimer = k.Doc.Loop.SetTimeout(SignInCloseDelay, func() {
				dom.RemoveClass(dropdown, "open")
			})
		})
	}
	for _, toggle := range dom.Find(k.Doc.Root, ".dropdown-toggle") {
		k.Doc.AddEventListener(toggle, dom.EventClick, func(e *dom.Event) {
			if dropdown != nil && dom.HasClass(dropdown, "open") {
				e.PreventDefault()
				e.StopPropagation()
				return
			}
			dom.AddClass(e.CurrentTarget, "open")
		})
	}
}

func (k *Kit) signOut(ctx context.Context) {
	link := k.Doc.GetElementByID("sign-out")
	if link == nil || link.Data != "a" || k.client == nil {
		return
	}
	k.Doc.AddEventListener(link, dom.EventClick, func(e *dom.Event) {
		e.PreventDefault()
		k.Go(ctx, func(ctx context.Context) error {
			_, err := k.client.PostForm(ctx, "/sign-out.html", url.Values{})
			return err
		}, func(err error) {
			if err != nil {
				k.Fail(err)
				return
			}
			if k.cfg.Reload != nil {
				k.cfg.Reload()
			}
		})
	})
}

// listen streams live notifications onto the loop until ctx ends.
func (k *Kit) listen(ctx context.Context) {
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		err := k.client.Subscribe(ctx, k.cfg.Username, func(p notify.Pending) {
			k.Doc.Loop.Post(func() {
				if err := k.Notes.LoadPending([]notify.Pending{p}, k.removeNotification(ctx)); err != nil {
					k.log.Warn("live notification dropped", "name", p.Name, "error", err)
				}
			})
		})
		if err != nil {
			k.log.Warn("notification feed closed", "error", err)
		}
	}()
}

// Go runs call off the loop and posts done back onto it with the result.
// A nil done reports errors through Fail.
func (k *Kit) Go(ctx context.Context, call func(context.Context) error, done func(error)) {
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		err := call(ctx)
		k.Doc.Loop.Post(func() {
			if done != nil {
				done(err)
			} else if err != nil {
				k.Fail(err)
			}
		})
	}()
}

// Wait blocks until every call started with Go has posted its completion
// and the live feed, if any, has stopped.
func (k *Kit) Wait() { k.wg.Wait() }

// Fail shows err as a persistent error notification, using the server's
// message when the error came from a request.
func (k *Kit) Fail(err error) {
	msg := err.Error()
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		msg = apiErr.UserMessage(k.cfg.SupportEmail)
	}
	k.log.Error("request failed", "error", err)
	if _, showErr := k.Notes.Show(msg, notify.WithKind(notify.KindError), notify.WithTimeout(-1)); showErr != nil {
		k.log.Error("showing failure", "error", showErr)
	}
}

// Report shows the errors of a failed result, or its message as a success
// notification. It reports whether the result was OK.
func Report[T any](k *Kit, r api.Result[T]) bool {
	if !r.OK {
		for _, msg := range r.Errors {
			k.Notes.Show(msg, notify.WithKind(notify.KindError))
		}
		return false
	}
	if r.Message != "" {
		k.Notes.Show(r.Message, notify.WithKind(notify.KindSuccess))
	}
	return true
}
