// Package server exposes the command registry and the event bus over HTTP on
// a loopback address, for UIs that are not linked into the binary.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/commands"
	"github.com/glorpus-work/clawstrap/pkg/config"
	pkgerrors "github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/events"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
	keepAliveInterval = 30 * time.Second
	maxArgsBytes      = 1 << 20
)

type listResponse struct {
	Commands []string `json:"commands"`
}

type resultResponse struct {
	Result any `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server routes HTTP requests to the registry and streams bus events.
type Server struct {
	registry  *commands.Registry
	bus       *events.Bus
	keepAlive time.Duration
}

// New creates a Server.
func New(registry *commands.Registry, bus *events.Bus) *Server {
	return &Server{registry: registry, bus: bus, keepAlive: keepAliveInterval}
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/commands", s.listCommands)
	r.Post("/commands/{name}", s.invoke)
	r.Get("/events", s.streamEvents)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", logger.Fields{"error": err.Error()})
	}
}

func (s *Server) listCommands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, listResponse{Commands: s.registry.Names()})
}

// statusFor maps a command error to an HTTP status. Failures of the command
// itself are 422 so clients can tell them from transport problems.
func statusFor(err error) int {
	switch {
	case pkgerrors.Is(err, pkgerrors.ErrUnknownCommand):
		return http.StatusNotFound
	case pkgerrors.Is(err, pkgerrors.ErrInvalidArguments):
		return http.StatusBadRequest
	case pkgerrors.Is(err, pkgerrors.ErrInstallBusy):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) invoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.registry.Has(name) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: pkgerrors.Detail(pkgerrors.ErrUnknownCommand, "%s", name).Error()})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxArgsBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Failed to read request body"})
		return
	}

	// Commands run to completion even when the client disconnects.
	result, err := s.registry.Invoke(context.WithoutCancel(r.Context()), name, body)
	if err != nil {
		logger.Debug("Command returned error", logger.Fields{
			"command":    name,
			"request_id": middleware.GetReqID(r.Context()),
			"error":      err.Error(),
		})
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: result})
}

// streamEvents relays every bus event as a server-sent event named after its topic.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)

	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, ok := <-sub.Ch():
			if !ok {
				return
			}
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				logger.Warn("Failed to encode event", logger.Fields{"topic": ev.Topic, "error": err.Error()})
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Topic, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// Serve listens on addr until ctx is done. ready, when set, receives the bound
// address once the listener is open.
func Serve(ctx context.Context, addr string, handler http.Handler, ready func(net.Addr)) error {
	if err := config.ValidateListenAddr(addr); err != nil {
		return err
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", addr)
	}

	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("Command server listening", logger.Fields{"addr": listener.Addr().String()})
	if ready != nil {
		ready(listener.Addr())
	}

	select {
	case err := <-errCh:
		return pkgerrors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return pkgerrors.Wrap(err, "server shutdown failed")
	}
	logger.Info("Command server stopped")
	return nil
}
