package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// WebhookPayload is posted to the configured webhook when a notification is
// added for a participant.
type WebhookPayload struct {
	Username string `json:"username"`
	Entry
}

// Dispatcher validates names against the catalog, persists them and
// delivers new entries to live subscribers and the webhook.
type Dispatcher struct {
	store      *Store
	hub        *Hub
	client     *http.Client
	webhookURL string
	log        *slog.Logger
}

// NewDispatcher creates a Dispatcher. webhookURL may be empty.
func NewDispatcher(store *Store, hub *Hub, webhookURL string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		store: store,
		hub:   hub,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		webhookURL: webhookURL,
		log:        logger,
	}
}

// Hub returns the live subscriber hub.
func (d *Dispatcher) Hub() *Hub { return d.hub }

// Add makes name pending for username and returns the pending entries.
// Only a newly added name is published.
func (d *Dispatcher) Add(ctx context.Context, username, name string) ([]Entry, error) {
	entry, err := Render(username, name)
	if err != nil {
		return nil, err
	}
	added, err := d.store.Add(ctx, username, name)
	if err != nil {
		return nil, err
	}
	if added {
		d.log.Info("notification added", "username", username, "name", name)
		d.hub.Publish(username, entry)
		if d.webhookURL != "" {
			payload, err := json.Marshal(WebhookPayload{Username: username, Entry: entry})
			if err == nil {
				if err := d.SendWebhook(ctx, d.webhookURL, payload); err != nil {
					d.log.Warn("webhook delivery failed", "url", d.webhookURL, "error", err)
				}
			}
		}
	}
	return d.List(ctx, username)
}

// Remove dismisses name for username and returns the pending entries.
func (d *Dispatcher) Remove(ctx context.Context, username, name string) ([]Entry, error) {
	if _, err := Lookup(name); err != nil {
		return nil, err
	}
	removed, err := d.store.Remove(ctx, username, name)
	if err != nil {
		return nil, err
	}
	if removed {
		d.log.Info("notification removed", "username", username, "name", name)
	}
	return d.List(ctx, username)
}

// List returns the pending entries of username. Names no longer in the
// catalog are skipped.
func (d *Dispatcher) List(ctx context.Context, username string) ([]Entry, error) {
	names, err := d.store.List(ctx, username)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		e, err := Render(username, name)
		if err != nil {
			d.log.Warn("skipping stale notification", "username", username, "name", name)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SendWebhook POSTs payload to the given URL.
func (d *Dispatcher) SendWebhook(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
