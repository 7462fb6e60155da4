package notifications

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknown is returned for names missing from the catalog.
var ErrUnknown = errors.New("unknown notification")

// Kind is the severity the page shows a notification with.
type Kind string

const (
	KindNotice Kind = "notice"
	KindError  Kind = "error"
)

// Definition describes one named notification. Content builds the jsonml
// descriptor for a participant.
type Definition struct {
	Name    string
	Kind    Kind
	Content func(username string) []any
}

// Entry is a pending notification in its wire form.
type Entry struct {
	Name   string          `json:"name"`
	Type   Kind            `json:"type"`
	JSONML json.RawMessage `json:"jsonml"`
}

func link(href string, text string) []any {
	return []any{"a", map[string]any{"href": href}, text}
}

var catalog = map[string]Definition{
	"email_missing": {
		Name: "email_missing",
		Kind: KindNotice,
		Content: func(u string) []any {
			return []any{"span", "Your account does not have an associated email address. ",
				link("/~"+u+"/emails/", "Add an email address")}
		},
	},
	"paypal_withdrawal_failed": {
		Name: "paypal_withdrawal_failed",
		Kind: KindError,
		Content: func(u string) []any {
			return link("/~"+u+"/routes/paypal", "Your last PayPal payout failed!")
		},
	},
	"credit_card_failed": {
		Name: "credit_card_failed",
		Kind: KindError,
		Content: func(u string) []any {
			return []any{"span", "Your credit card has failed! ",
				link("/~"+u+"/routes/credit-card", "Fix your card")}
		},
	},
	"credit_card_expires": {
		Name: "credit_card_expires",
		Kind: KindError,
		Content: func(u string) []any {
			return []any{"span", "Your credit card is about to expire! ",
				link("/~"+u+"/routes/credit-card", "Update card")}
		},
	},
}

// Lookup returns the definition for name.
func Lookup(name string) (Definition, error) {
	def, ok := catalog[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	return def, nil
}

// Names returns the catalog names in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render builds the entry for name as shown to username.
func Render(username, name string) (Entry, error) {
	def, err := Lookup(name)
	if err != nil {
		return Entry{}, err
	}
	desc, err := json.Marshal(def.Content(username))
	if err != nil {
		return Entry{}, fmt.Errorf("marshalling %s: %w", name, err)
	}
	return Entry{Name: name, Type: def.Kind, JSONML: desc}, nil
}
