// Package server implements the listener,
// protocol detection, handler dispatch, and response encode that make a
// process reachable over all three wire protocols at once.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"gateway/internal/codec"
	"gateway/internal/filter"
	"gateway/internal/rpc"
)

// Config configures the listening address and HTTP server timeouts.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server accepts HTTP/1.1 and HTTP/2-cleartext (h2c) connections on one
// port, detects which of the three protocols an inbound request speaks,
// and dispatches it to the bound Handler.
type Server struct {
	config   Config
	handlers *Registry
	requests *codec.RequestCodec
	response *codec.ResponseCodec
	filters  filter.Filter
	logger   *slog.Logger

	httpServer *http.Server
	reqNum     atomic.Uint64
}

// New builds a Server dispatching to handlers, with requests its shared
// RequestCodec (so SpringCloud route bindings configured on it are
// visible to decode).
func New(cfg Config, handlers *Registry, requests *codec.RequestCodec, filters filter.Filter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:   cfg,
		handlers: handlers,
		requests: requests,
		response: codec.NewResponseCodec(),
		filters:  filters,
		logger:   logger.With("component", "server"),
	}
}

// Start begins serving in the background; ctx governs the server's
// BaseContext for in-flight requests, not the listener's own lifetime
// (call Stop to shut the listener down).
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	h2s := &http2.Server{}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      h2c.NewHandler(http.HandlerFunc(s.serveHTTP), h2s),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	s.logger.Info("starting server", "addr", addr)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("stopping server", "requests", s.reqNum.Load())
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.reqNum.Add(1)

	inv, err := s.requests.DecodeServerRequest(r)
	if err != nil {
		s.writeDecodeError(w, err)
		return
	}

	handler, ok := s.handlers.Lookup(inv.HandlerKey())
	if !ok {
		inv.SetError(rpc.NotFind("no handler bound for " + inv.HandlerKey().String()))
		s.response.EncodeServerResponse(w, inv)
		return
	}

	dispatch := func(ctx context.Context, inv *rpc.Invocation) error {
		result, err := handler(ctx, inv)
		if err != nil {
			inv.SetError(err)
			return err
		}
		inv.SetResult(result)
		return nil
	}
	if s.filters != nil {
		dispatch = s.filters(dispatch)
	}

	_ = dispatch(r.Context(), inv)

	if err := s.response.EncodeServerResponse(w, inv); err != nil {
		s.logger.Error("encode response", "error", err, "handler", inv.HandlerKey().String())
	}
}

func (s *Server) writeDecodeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if rpc.IsNotFind(err) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}
