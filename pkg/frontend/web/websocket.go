package web

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/algo-boyz/rotatar/pkg/backend"
	"github.com/algo-boyz/rotatar/pkg/frontend"
)

const sendCapacity = 64

type wsConn interface {
	io.Closer
	WriteJSON(v any) error
	ReadJSON(v any) error
}

var upgrader = websocket.Upgrader{
	CheckOrigin: checkOrigin,
}

// checkOrigin admits same-origin, loopback and private network pages.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		slog.Warn("rejected websocket connection: invalid origin", "origin", origin)
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	requestHost := r.Host
	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		requestHost = h
	}
	if host == requestHost {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsPrivate()) {
		return true
	}
	slog.Warn("rejected websocket connection", "origin", origin)
	return false
}

func (h *handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.backend.Listen(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.backend.Unlisten(msgs)
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer h.backend.Unlisten(msgs)

	// Only the writer touches the connection for writes.
	send := make(chan any, sendCapacity)
	done := make(chan struct{})
	go runWriter(conn, send)
	go h.runReader(conn, send, done)

	h.forward(msgs, send, done)
	// The reader may still reply; stop it before send is closed.
	if err := conn.Close(); err != nil {
		slog.Debug("websocket close error", "error", err)
	}
	<-done
	close(send)
}

func runWriter(conn wsConn, send <-chan any) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("websocket close error", "error", err)
		}
	}()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (h *handler) runReader(conn wsConn, send chan<- any, done chan<- struct{}) {
	defer close(done)
	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		h.handleCommand(cmd, send)
	}
}

// forward pushes backend events until the client goes away, the backend
// closes or the server shuts down.
func (h *handler) forward(msgs <-chan backend.Message, send chan<- any, done <-chan struct{}) {
	trySend := func(v any) bool {
		select {
		case send <- v:
			return true
		case <-done:
			return false
		case <-h.ctx.Done():
			return false
		}
	}
	if !trySend(stateEvent(h.backend.State())) {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-h.ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if ev, ok := frontend.EventFor(msg); ok && !trySend(ev) {
				return
			}
		}
	}
}

// EventState carries a full snapshot, sent when a client connects.
const EventState = "state"

func stateEvent(snap backend.Snapshot) frontend.Event {
	return frontend.Event{Name: EventState, Payload: snap}
}
