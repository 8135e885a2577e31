// Package server exposes the schema compiler, the catalogue and table rows
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/electwix/db-catalogue/internal/catalogue"
	"github.com/electwix/db-catalogue/internal/compiler"
	"github.com/electwix/db-catalogue/internal/data"
	"github.com/electwix/db-catalogue/internal/logging"
)

// ShutdownTimeout bounds how long Serve waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// Config holds what the server needs to run.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Compiler     *compiler.Compiler
	Catalogue    *catalogue.Catalogue
	// Data executes insert queries. Nil keeps rows in memory.
	Data   *data.Engine
	Logger logging.Logger
}

// Server serves the HTTP API.
type Server struct {
	cfg     Config
	handler http.Handler
	logger  logging.Logger
}

// New builds a Server from cfg. Catalogue is required.
func New(cfg Config) (*Server, error) {
	if cfg.Catalogue == nil {
		return nil, errors.New("server requires a catalogue")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Compiler == nil {
		cfg.Compiler = compiler.New(compiler.Options{Logger: cfg.Logger})
	}
	if cfg.Data == nil {
		eng, err := data.Open(context.Background(), cfg.Catalogue, data.NewMemoryStore(), data.Options{Logger: cfg.Logger})
		if err != nil {
			return nil, err
		}
		cfg.Data = eng
	}
	return &Server{
		cfg:     cfg,
		handler: NewRouter(NewHandlers(cfg.Compiler, cfg.Catalogue, cfg.Data, cfg.Logger), cfg.Logger),
		logger:  cfg.Logger,
	}, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully. ln is closed on return.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	s.logger.Info("starting server", "addr", ln.Addr().String())

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
