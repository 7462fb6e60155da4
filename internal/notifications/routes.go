package notifications

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterRoutes mounts the participant notification endpoints on the given router.
func RegisterRoutes(r chi.Router, d *Dispatcher) {
	r.Route("/~{username}", func(r chi.Router) {
		r.Get("/notifications.json", handleList(d))
		r.Post("/notifications.json", handleModify(d))
		r.Get("/notifications/ws", handleWebSocket(d))
	})
}

func handleList(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := d.List(r.Context(), chi.URLParam(r, "username"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// handleModify accepts a form with remove=<name> or add=<name>.
func handleModify(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		username := chi.URLParam(r, "username")
		remove, add := r.PostForm.Get("remove"), r.PostForm.Get("add")

		var (
			name    string
			entries []Entry
			err     error
		)
		switch {
		case remove != "":
			name = remove
			entries, err = d.Remove(r.Context(), username, name)
		case add != "":
			name = add
			entries, err = d.Add(r.Context(), username, name)
		default:
			writeError(w, http.StatusBadRequest, "Missing add or remove.")
			return
		}
		if errors.Is(err, ErrUnknown) {
			writeError(w, http.StatusBadRequest, "Unknown notification: "+name)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleWebSocket(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			d.log.Warn("notifications: websocket upgrade", "error", err)
			return
		}
		defer conn.Close()

		ch, cancel := d.Hub().Subscribe(username)
		defer cancel()

		// The reader only watches for the client going away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						d.log.Debug("notifications: websocket read", "error", err)
					}
					return
				}
			}
		}()

		for {
			select {
			case e, ok := <-ch:
				if !ok {
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
					return
				}
				if err := conn.WriteJSON(e); err != nil {
					d.log.Debug("notifications: websocket write", "error", err)
					return
				}
			case <-gone:
				return
			}
		}
	}
}

type errorBody struct {
	Code  int    `json:"error_code"`
	Short string `json:"error_message_short"`
	Long  string `json:"error_message_long"`
}

func writeError(w http.ResponseWriter, status int, long string) {
	writeJSON(w, status, errorBody{Code: status, Short: http.StatusText(status), Long: long})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
