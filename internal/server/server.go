package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Seeker14491/distancelog/internal/changelist"
	"github.com/Seeker14491/distancelog/internal/level"
	"github.com/Seeker14491/distancelog/internal/store"
)

const (
	// streamWriteTimeout is the maximum time allowed for a single SSE or
	// websocket write. Must be <= shutdown timeout to ensure clean shutdown.
	streamWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second
)

// StatusFunc returns the value served by /api/status, typically the report
// of the last update cycle. It must be safe for concurrent use.
type StatusFunc func() any

// Server serves the changelist and snapshot over HTTP.
//
// Routes:
//   - GET /health: liveness probe
//   - GET /api/changelist: the changelist as JSON, ?limit=N for the N newest
//   - GET /api/levels: the last snapshot as JSON
//   - GET /api/status: the value of the StatusFunc
//   - GET /api/sse: Server-Sent Events stream of appended entries
//   - GET /api/ws: websocket stream of appended entries
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	feed       *store.Feed
	status     StatusFunc
	port       int
	router     *chi.Mux
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: Store the changelist and snapshot are read from
//   - feed: Feed of appended entries for the streaming routes (may be nil)
//   - status: Source of /api/status (may be nil)
//   - port: TCP port to listen on
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, feed *store.Feed, status StatusFunc, port int, logger *slog.Logger) *Server {
	if feed == nil {
		feed = store.NewFeed()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:  st,
		feed:   feed,
		status: status,
		port:   port,
		logger: logger,
	}
	s.setupRouter()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// the changelist is public data consumed by static pages on other origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/changelist", s.handleChangelist)
		r.Get("/levels", s.handleLevels)
		r.Get("/status", s.handleStatus)
		r.Get("/sse", s.handleSSE)
		r.Get("/ws", s.handleWebSocket)
	})

	s.router = r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts end with ctx, which stops the streaming handlers
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	return nil
}

// loggingMiddleware logs each request at debug level.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChangelist returns the changelist, oldest first. With ?limit=N only
// the N newest entries are returned.
func (s *Server) handleChangelist(w http.ResponseWriter, r *http.Request) {
	limit := -1
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.store.LoadChangelist()
	if err != nil && !errors.Is(err, store.ErrNotExist) {
		s.logger.Error("failed to load changelist", "error", err)
		s.respondError(w, http.StatusInternalServerError, "changelist unavailable")
		return
	}
	if entries == nil {
		entries = []changelist.Entry{}
	}
	if limit >= 0 && limit < len(entries) {
		entries = entries[len(entries)-limit:]
	}

	s.respondJSON(w, http.StatusOK, entries)
}

// handleLevels returns the last saved snapshot.
func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.store.LoadSnapshot()
	if err != nil && !errors.Is(err, store.ErrNotExist) {
		s.logger.Error("failed to load snapshot", "error", err)
		s.respondError(w, http.StatusInternalServerError, "snapshot unavailable")
		return
	}
	if levels == nil {
		levels = []level.Level{}
	}

	s.respondJSON(w, http.StatusOK, levels)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status any = struct{}{}
	if s.status != nil {
		status = s.status()
	}
	s.respondJSON(w, http.StatusOK, status)
}

// handleSSE streams appended changelist entries via Server-Sent Events.
//
// The handler uses write deadlines so a slow or disconnected client cannot
// block it past a shutdown signal.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// may not be supported by some ResponseWriter impls
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.feed.Subscribe()
	defer s.feed.Unsubscribe(ch)

	// commit headers so clients see the stream open before the first entry
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and, via BaseContext, on shutdown
			return
		}
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
