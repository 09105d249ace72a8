package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/grandcat/zeroconf"
	"github.com/muurk/lifxlan/internal/logging"
	"github.com/muurk/lifxlan/internal/registry"
	"go.uber.org/zap"
)

// DefaultListen is the bridge API address when none is configured.
const DefaultListen = ":8080"

// shutdownTimeout bounds Shutdown when the caller's context has no deadline.
const shutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Listen       string
	CertPath     string // TLS is enabled when both paths are set
	KeyPath      string
	Advertise    bool   // Register the bridge over mDNS
	InstanceName string // mDNS instance name
}

// TLSEnabled reports whether both certificate paths are set.
func (c Config) TLSEnabled() bool {
	return c.CertPath != "" && c.KeyPath != ""
}

// Server exposes a registry over HTTP and a websocket event stream.
type Server struct {
	config    Config
	reg       *registry.Registry
	hub       *Hub
	router    chi.Router
	tlsConfig *tls.Config

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
	mdns     *zeroconf.Server
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a server for reg. Nothing listens until Start.
func New(config Config, reg *registry.Registry) (*Server, error) {
	if config.Listen == "" {
		config.Listen = DefaultListen
	}

	s := &Server{
		config: config,
		reg:    reg,
		hub:    NewHub(),
	}

	if config.TLSEnabled() {
		tlsConfig, err := NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		s.tlsConfig = tlsConfig
	}

	s.router = s.routes()
	return s, nil
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start listens, advertises when configured, and serves until ctx is
// cancelled or the listener fails. It shuts down before returning.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	if s.tlsConfig != nil {
		logging.Info("TLS Configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.listener = listener
	s.http = httpServer
	s.mu.Unlock()

	logging.Info("Starting lifx-bridge server",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
	)

	s.relayEvents(ctx)

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		mdns, err := Advertise(s.config.InstanceName, port, s.tlsConfig != nil, s.reg.Len())
		if err != nil {
			// The API still works without mDNS
			logging.Warn("Failed to advertise bridge", zap.Error(err))
		} else {
			s.mu.Lock()
			s.mdns = mdns
			s.mu.Unlock()
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		_ = s.Shutdown(context.Background())
		return fmt.Errorf("server failed: %w", err)
	}
}

// relayEvents subscribes to the registry and forwards every event to the
// hub until ctx is cancelled. The subscription exists when it returns.
func (s *Server) relayEvents(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.stop = cancel
	s.mu.Unlock()

	id, events := s.reg.Subscribe()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.reg.Unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				s.hub.Broadcast(ev)
			}
		}
	}()
}

// Shutdown stops the mDNS advertisement, the HTTP server and every
// websocket client.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	mdns, httpServer, stop := s.mdns, s.http, s.stop
	s.mdns = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}

	if mdns != nil {
		mdns.Shutdown()
	}

	var err error
	if httpServer != nil {
		if err = httpServer.Shutdown(ctx); err != nil {
			logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
			_ = httpServer.Close()
		}
	}

	s.hub.closeAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout waiting for event relay")
	}

	logging.Sync()
	return err
}
