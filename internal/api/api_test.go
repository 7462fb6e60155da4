package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/pagekit/internal/notify"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL + "/~alice/")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRejectsRelative(t *testing.T) {
	if _, err := NewClient("/relative"); err == nil {
		t.Error("expected error for relative base url")
	}
}

func TestPostFormSendsCSRF(t *testing.T) {
	var gotToken, gotType, gotPath string
	var gotForm url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/~alice/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: CSRFCookie, Value: "tok123", Path: "/"})
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/~alice/emails/modify.json", func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(CSRFHeader)
		gotType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		r.ParseForm()
		gotForm = r.PostForm
		w.Write([]byte(`{"msg": "Saved."}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	if _, err := c.Get(ctx, ""); err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp, err := c.PostForm(ctx, "emails/modify.json", url.Values{"email": {"a@example.com"}})
	if err != nil {
		t.Fatalf("PostForm: %v", err)
	}
	if gotPath != "/~alice/emails/modify.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotToken != "tok123" {
		t.Errorf("csrf header = %q", gotToken)
	}
	if gotType != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %q", gotType)
	}
	if gotForm.Get("email") != "a@example.com" {
		t.Errorf("form = %v", gotForm)
	}
	if r := Decode[map[string]any](resp); !r.OK || r.Message != "Saved." {
		t.Errorf("result = %+v", r)
	}
}

func TestPostMultipart(t *testing.T) {
	var field, file string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		field = r.FormValue("name")
		f, _, err := r.FormFile("image")
		if err == nil {
			b, _ := io.ReadAll(f)
			file = string(b)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	_, err := c.PostMultipart(context.Background(), "image.json", url.Values{"name": {"logo"}},
		File{Field: "image", Name: "logo.png", Content: strings.NewReader("PNGDATA")})
	if err != nil {
		t.Fatalf("PostMultipart: %v", err)
	}
	if field != "logo" || file != "PNGDATA" {
		t.Errorf("field=%q file=%q", field, file)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"long message", 400, `{"error_message_long": "Bad email."}`, "Bad email."},
		{"no body", 500, ``, "An error occurred (Internal Server Error).\nPlease contact support@example.com if the problem persists."},
		{"html body", 502, `<html>bad gateway</html>`, "An error occurred (Bad Gateway).\nPlease contact support@example.com if the problem persists."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			resp, err := c.PostForm(context.Background(), "x.json", nil)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("status = %d", apiErr.Status)
			}
			if got := apiErr.UserMessage("support@example.com"); got != tt.wantMsg {
				t.Errorf("UserMessage = %q, want %q", got, tt.wantMsg)
			}
			if resp == nil || resp.Status != tt.status {
				t.Error("response should accompany the error")
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1/")
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Get(context.Background(), "x.json")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != 0 {
		t.Fatalf("err = %v", err)
	}
	msg := apiErr.UserMessage("s")
	if !strings.HasPrefix(msg, "An error occurred (") || !strings.Contains(msg, apiErr.Err.Error()) {
		t.Errorf("UserMessage = %q, want the transport error", msg)
	}
}

func TestUserMessageReason(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"status text", &Error{Status: 404}, "An error occurred (Not Found).\nPlease contact s if the problem persists."},
		{"transport", &Error{Err: errors.New("connection refused")}, "An error occurred (connection refused).\nPlease contact s if the problem persists."},
		{"unknown status", &Error{Status: 599}, "An error occurred (error).\nPlease contact s if the problem persists."},
		{"long message", &Error{Status: 400, Message: "Nope."}, "Nope."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.UserMessage("s"); got != tt.want {
				t.Errorf("UserMessage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	type payload struct {
		Balance string `json:"balance"`
	}
	tests := []struct {
		name    string
		resp    Response
		ok      bool
		errs    []string
		message string
	}{
		{"ok", Response{Status: 200, Body: []byte(`{"balance": "1.00", "msg": "Done"}`)}, true, nil, "Done"},
		{"errors string", Response{Status: 200, Body: []byte(`{"errors": "nope"}`)}, false, []string{"nope"}, ""},
		{"errors list", Response{Status: 200, Body: []byte(`{"errors": ["a", "b"], "msg": "m"}`)}, false, []string{"a", "b"}, "m"},
		{"empty errors", Response{Status: 200, Body: []byte(`{"errors": [], "balance": "2"}`)}, true, nil, ""},
		{"null errors", Response{Status: 200, Body: []byte(`{"errors": null}`)}, true, nil, ""},
		{"not an object", Response{Status: 200, Body: []byte(`[1, 2]`)}, false, []string{"response is not a JSON object"}, ""},
		{"not json", Response{Status: 200, Body: []byte(`oops`)}, false, []string{"response is not a JSON object"}, ""},
		{"bad errors", Response{Status: 200, Body: []byte(`{"errors": 3}`)}, false, []string{"errors must be a string or list, got float64"}, ""},
		{"status", Response{Status: 404, Body: nil}, false, []string{"unexpected status 404"}, ""},
		{"status with message", Response{Status: 400, Body: []byte(`{"error_message_long": "Too long."}`)}, false, []string{"Too long."}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Decode[payload](&tt.resp)
			if r.OK != tt.ok || r.Message != tt.message {
				t.Errorf("got %+v", r)
			}
			if len(r.Errors) != len(tt.errs) {
				t.Fatalf("errors = %v, want %v", r.Errors, tt.errs)
			}
			for i := range tt.errs {
				if r.Errors[i] != tt.errs[i] {
					t.Errorf("errors[%d] = %q, want %q", i, r.Errors[i], tt.errs[i])
				}
			}
			if (r.Err() == nil) != tt.ok {
				t.Errorf("Err() = %v", r.Err())
			}
		})
	}
	if r := Decode[payload](&Response{Status: 200, Body: []byte(`{"balance": "1.00"}`)}); r.Data.Balance != "1.00" {
		t.Errorf("data = %+v", r.Data)
	}
}

func TestNotificationsAndRemove(t *testing.T) {
	var removed string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/~alice/notifications.json" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodPost {
			r.ParseForm()
			removed = r.PostForm.Get("remove")
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"name": "email_missing", "type": "notice", "jsonml": ["span", "No email"]}]`))
	}))
	ctx := context.Background()

	got, err := c.Notifications(ctx, "alice")
	if err != nil {
		t.Fatalf("Notifications: %v", err)
	}
	if len(got) != 1 || got[0].Name != "email_missing" || got[0].Type != "notice" {
		t.Fatalf("got %+v", got)
	}
	left, err := c.RemoveNotification(ctx, "alice", "email_missing")
	if err != nil {
		t.Fatalf("RemoveNotification: %v", err)
	}
	if removed != "email_missing" || len(left) != 0 {
		t.Errorf("removed=%q left=%v", removed, left)
	}
}

func TestSubscribe(t *testing.T) {
	upgrader := websocket.Upgrader{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/~alice/notifications/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(notify.Pending{Name: "credit_card_failed", Type: "error"})
		conn.WriteJSON(notify.Pending{Name: "email_missing", Type: "notice"})
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		// Wait for the client to go away.
		conn.ReadMessage()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var names []string
	err := c.Subscribe(ctx, "alice", func(p notify.Pending) { names = append(names, p.Name) })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if len(names) != 2 || names[0] != "credit_card_failed" || names[1] != "email_missing" {
		t.Errorf("names = %v", names)
	}
}

func TestSubscribeCancel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Subscribe(ctx, "alice", func(notify.Pending) {}) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Subscribe after cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}
