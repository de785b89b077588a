package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/zenazn/goji/web"
	"github.com/zenazn/goji/web/middleware"

	"github.com/ironsheep/dicom-viewer/internal/config"
	"github.com/ironsheep/dicom-viewer/internal/session"
)

// Options tunes the HTTP surface.
type Options struct {
	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string

	// MaxUploadSize bounds the request body of /upload in bytes.
	MaxUploadSize int64

	// ShutdownTimeout bounds how long Run waits for in-flight requests.
	ShutdownTimeout time.Duration
}

// Server exposes a session over HTTP.
type Server struct {
	session *session.Session
	store   *session.ArtifactStore
	opts    Options

	mux     *web.Mux
	handler http.Handler
}

// New builds the router for sess. Artifacts are served from store.
func New(sess *session.Session, store *session.ArtifactStore, opts Options) *Server {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = config.DefaultMaxUploadSize
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = config.DefaultShutdownTimeout
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	s := &Server{
		session: sess,
		store:   store,
		opts:    opts,
		mux:     web.New(),
	}

	s.mux.Use(middleware.RequestID)
	s.mux.Use(requestLogger)
	s.mux.Use(recoverer)
	s.initRoutes()
	s.mux.NotFound(notFoundHandler)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.mux)
	return s
}

// Handler returns the root handler, including CORS processing.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// initRoutes registers every entry of the route table on the mux.
func (s *Server) initRoutes() {
	for _, rt := range routeTable() {
		handle := rt.handle
		h := func(c web.C, w http.ResponseWriter, r *http.Request) {
			handle(s, c, w, r)
		}
		switch rt.Method {
		case http.MethodGet:
			s.mux.Get(rt.Pattern, h)
		case http.MethodPost:
			s.mux.Post(rt.Pattern, h)
		default:
			panic(fmt.Sprintf("route %s %s: unsupported method", rt.Method, rt.Pattern))
		}
	}
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		config.Infof("Web server listening at %s\n", ln.Addr())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server error: %w", err)
	case <-ctx.Done():
	}

	config.Infof("Shutting down web server (timeout %s)\n", s.opts.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	return nil
}
