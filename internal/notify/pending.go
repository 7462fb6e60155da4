package notify

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ziadkadry99/pagekit/internal/jsonml"
)

// Pending is a named notification stored server side for a participant.
// JSONML is the descriptor in its wire form.
type Pending struct {
	Name   string          `json:"name"`
	Type   string          `json:"type"`
	JSONML json.RawMessage `json:"jsonml"`
}

// LoadPending shows every pending notification until the user closes it.
// Closing one calls remove with its name so the server can forget it.
// Notifications whose descriptor cannot be decoded are skipped and reported
// in the returned error; the rest are still shown.
func (c *Center) LoadPending(pending []Pending, remove func(name string)) error {
	var errs []error
	for _, p := range pending {
		desc, err := decodeDescriptor(p.JSONML)
		if err != nil {
			errs = append(errs, fmt.Errorf("notification %q: %w", p.Name, err))
			continue
		}
		name := p.Name
		opts := []Option{WithKind(Kind(p.Type)), WithTimeout(-1)}
		if remove != nil {
			opts = append(opts, WithOnClose(func() { remove(name) }))
		}
		if _, err := c.Show(desc, opts...); err != nil {
			errs = append(errs, fmt.Errorf("notification %q: %w", p.Name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("loading pending notifications: %w", errors.Join(errs...))
	}
	return nil
}

// decodeDescriptor accepts a jsonml array or a plain JSON string.
func decodeDescriptor(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return "", nil
	}
	return jsonml.Parse(raw)
}
