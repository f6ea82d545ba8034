// Package web serves the browser overlay and pushes backend events to it
// over a websocket.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/algo-boyz/rotatar/pkg/config"
	"github.com/algo-boyz/rotatar/pkg/frontend"
)

// DefaultAddr is where the overlay is served unless told otherwise.
const DefaultAddr = "127.0.0.1:7878"

const shutdownTimeout = 5 * time.Second

//go:embed static/index.html
var indexHTML []byte

// Server is the browser frontend.
type Server struct {
	Addr string
}

func New(addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{Addr: addr}
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context, cfg config.Config, b frontend.Backend) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           Handler(ctx, cfg, b),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("web frontend shutdown failed", "error", err)
		}
	}()

	slog.Info("web frontend listening", "addr", s.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler routes the overlay page, its JSON queries, the sprite files and
// the event socket. Websocket sessions end when ctx is done.
func Handler(ctx context.Context, cfg config.Config, b frontend.Backend) http.Handler {
	h := &handler{ctx: ctx, cfg: cfg, backend: b}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", h.handleConfig)
	mux.HandleFunc("GET /api/state", h.handleState)
	mux.HandleFunc("GET /images/{kind}/{index}", h.handleImage)
	mux.HandleFunc("GET /ws", h.handleWebSocket)
	mux.HandleFunc("GET /{$}", h.handleIndex)
	return mux
}

type handler struct {
	ctx     context.Context
	cfg     config.Config
	backend frontend.Backend
}

func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(indexHTML); err != nil {
		slog.Debug("failed to write index", "error", err)
	}
}

func (h *handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg)
}

func (h *handler) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backend.State())
}

func (h *handler) handleImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image index")
		return
	}
	var speaking bool
	switch r.PathValue("kind") {
	case "idle":
	case "speaking":
		speaking = true
	default:
		writeError(w, http.StatusNotFound, "unknown image kind")
		return
	}
	path, ok := frontend.Sprite(h.cfg, index, speaking)
	if !ok {
		writeError(w, http.StatusNotFound, "no such image")
		return
	}
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
