package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/pagekit/internal/notify"
)

func notificationsPath(username string) string {
	return "/~" + url.PathEscape(username) + "/notifications.json"
}

// Notifications fetches the pending notifications of username.
func (c *Client) Notifications(ctx context.Context, username string) ([]notify.Pending, error) {
	resp, err := c.Get(ctx, notificationsPath(username))
	if err != nil {
		return nil, err
	}
	return decodePending(resp)
}

// RemoveNotification dismisses the named notification for username and
// returns the notifications still pending.
func (c *Client) RemoveNotification(ctx context.Context, username, name string) ([]notify.Pending, error) {
	resp, err := c.PostForm(ctx, notificationsPath(username), url.Values{"remove": {name}})
	if err != nil {
		return nil, err
	}
	return decodePending(resp)
}

func decodePending(resp *Response) ([]notify.Pending, error) {
	var out []notify.Pending
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, &Error{Status: resp.Status, Err: fmt.Errorf("decoding notifications: %w", err)}
	}
	return out, nil
}

// Subscribe streams notifications added for username to fn until ctx is
// cancelled or the server closes the connection. fn runs on the reading
// goroutine. A clean shutdown returns nil.
func (c *Client) Subscribe(ctx context.Context, username string, fn func(notify.Pending)) error {
	u, err := c.Resolve("/~" + url.PathEscape(username) + "/notifications/ws")
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	dialer := *websocket.DefaultDialer
	dialer.Jar = c.jar
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	defer stop()

	for {
		var p notify.Pending
		if err := conn.ReadJSON(&p); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				c.log.Warn("skipping malformed notification", "error", err)
				continue
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		c.log.Debug("notification received", "name", p.Name)
		fn(p)
	}
}
