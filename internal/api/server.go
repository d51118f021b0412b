// ABOUTME: HTTP server exposing conversations, profiles, and posts to remote clients
// ABOUTME: Owns listener lifecycle and graceful shutdown, including live streams

package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/2389/pairchat/internal/auth"
	"github.com/2389/pairchat/internal/chat"
	"github.com/2389/pairchat/internal/community"
	"github.com/2389/pairchat/internal/dedupe"
)

// Defaults for Options fields left zero.
const (
	DefaultShutdownTimeout = 5 * time.Second
	DefaultKeepAlive       = 15 * time.Second
	DefaultIdempotencyTTL  = 10 * time.Minute
	DefaultIdempotencySize = 4096
)

// Options configures a Server.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	// KeepAlive is the interval between SSE comment lines on idle streams.
	KeepAlive time.Duration
	// IdempotencyTTL is how long a send is remembered under its
	// Idempotency-Key; IdempotencySize bounds how many are remembered.
	IdempotencyTTL  time.Duration
	IdempotencySize int
}

// Server serves the pairchat HTTP API.
type Server struct {
	resolver   *chat.Resolver
	community  *community.Service
	verifier   auth.TokenVerifier
	opts       Options
	httpServer *http.Server
	logger     *slog.Logger

	sent  *dedupe.Cache[chat.Message]
	sends singleflight.Group

	// streamCtx is the base context of every request. Cancelling it ends
	// open streams.
	streamCtx     context.Context
	cancelStreams context.CancelFunc
}

// New creates a Server. A nil logger uses slog.Default().
func New(resolver *chat.Resolver, svc *community.Service, verifier auth.TokenVerifier, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = DefaultIdempotencyTTL
	}
	if opts.IdempotencySize <= 0 {
		opts.IdempotencySize = DefaultIdempotencySize
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		resolver:      resolver,
		community:     svc,
		verifier:      verifier,
		opts:          opts,
		logger:        logger.With("component", "api"),
		sent:          dedupe.New[chat.Message](opts.IdempotencyTTL, opts.IdempotencySize),
		streamCtx:     streamCtx,
		cancelStreams: cancel,
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return streamCtx },
	}
	return s
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	requireAuth := auth.HTTPAuthMiddleware(s.verifier, s.logger)
	mux.Handle("POST /api/conversations", requireAuth(http.HandlerFunc(s.handleResolve)))
	mux.Handle("POST /api/messages", requireAuth(http.HandlerFunc(s.handleSend)))
	mux.Handle("GET /api/messages/stream", requireAuth(http.HandlerFunc(s.handleStream)))

	mux.Handle("GET /api/profiles/{id}", requireAuth(http.HandlerFunc(s.handleGetProfile)))
	mux.Handle("POST /api/profiles", requireAuth(http.HandlerFunc(s.handleCreateProfile)))
	mux.Handle("PATCH /api/profiles/{id}", requireAuth(http.HandlerFunc(s.handleEditProfile)))

	mux.Handle("POST /api/posts", requireAuth(http.HandlerFunc(s.handleCreatePost)))
	mux.Handle("PATCH /api/posts/{id}", requireAuth(http.HandlerFunc(s.handleUpdatePost)))
	mux.Handle("GET /api/posts/stream", requireAuth(http.HandlerFunc(s.handlePostStream)))
	mux.Handle("POST /api/posts/{id}/comments", requireAuth(http.HandlerFunc(s.handleCreateComment)))
	mux.Handle("GET /api/posts/{id}/comments/stream", requireAuth(http.HandlerFunc(s.handleCommentStream)))

	return s.logRequests(mux)
}

// logRequests logs each request at debug level once it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

// Run listens on the configured address and serves until ctx is cancelled.
// Returns nil on graceful shutdown, or the error that stopped the server.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run with a caller-provided listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the serving context is already done.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown ends open streams and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	s.cancelStreams()
	s.sent.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
