package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-pipenet/pkg/logging"
)

// DefaultShutdownTimeout bounds connection draining.
const DefaultShutdownTimeout = 30 * time.Second

// ReloadFunc is invoked on SIGHUP.
type ReloadFunc func(ctx context.Context) error

// GracefulServer wraps an HTTP server that drains connections when its
// context is cancelled and reloads on SIGHUP.
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	ready    chan struct{}
	listener net.Listener

	reloadMu sync.RWMutex
	reloadFn ReloadFunc
}

// Option configures a GracefulServer.
type Option func(*GracefulServer)

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(gs *GracefulServer) { gs.logger = l }
}

// WithShutdownTimeout overrides DefaultShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(gs *GracefulServer) {
		if d > 0 {
			gs.shutdownTimeout = d
		}
	}
}

// WithReloadFunc registers the SIGHUP handler.
func WithReloadFunc(fn ReloadFunc) Option {
	return func(gs *GracefulServer) { gs.reloadFn = fn }
}

// NewGracefulServer creates a server for handler bound to addr.
func NewGracefulServer(addr string, handler http.Handler, opts ...Option) *GracefulServer {
	gs := &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:          logging.NopLogger{},
		shutdownTimeout: DefaultShutdownTimeout,
		shutdownCh:      make(chan struct{}),
		ready:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(gs)
	}
	return gs
}

// Run listens and serves until ctx is cancelled, then shuts down
// gracefully. A clean shutdown returns nil.
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	gs.listener = ln
	close(gs.ready)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	serveErr := make(chan error, 1)
	go func() {
		gs.logger.Info("HTTP server listening", logging.String("addr", ln.Addr().String()))
		serveErr <- gs.server.Serve(ln)
	}()

	for {
		select {
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-hup:
			gs.logger.Info("Received SIGHUP, reloading")
			_ = gs.Reload(ctx)
		case <-ctx.Done():
			if err := gs.Shutdown(gs.shutdownTimeout); err != nil {
				return err
			}
			<-serveErr
			return nil
		}
	}
}

// Addr blocks until Run has bound its listener and returns the address.
func (gs *GracefulServer) Addr() net.Addr {
	<-gs.ready
	return gs.listener.Addr()
}

// Shutdown initiates a graceful shutdown. Only the first call has effect.
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("Initiating graceful shutdown", logging.Duration("timeout", timeout))
		if err = gs.server.Shutdown(ctx); err != nil {
			gs.logger.Error("Error during shutdown", logging.Error(err))
			return
		}
		gs.logger.Info("Server shutdown complete")
	})
	return err
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetReloadFunc replaces the SIGHUP handler.
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.reloadMu.Lock()
	defer gs.reloadMu.Unlock()
	gs.reloadFn = fn
}

// Reload runs the registered reload function, if any.
func (gs *GracefulServer) Reload(ctx context.Context) error {
	gs.reloadMu.RLock()
	fn := gs.reloadFn
	gs.reloadMu.RUnlock()

	if fn == nil {
		gs.logger.Warn("Reload requested, but no reload function configured")
		return nil
	}

	timer := logging.StartTimer(gs.logger, "reload finished", logging.Operation("reload"))
	if err := fn(ctx); err != nil {
		timer.EndError(err)
		return err
	}
	timer.End()
	return nil
}
