package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"niena/internal/observability"
)

const shutdownTimeout = 30 * time.Second

// Handler returns the routed API wrapped in the tracing middleware of om, if any
func (s *Server) Handler(om *observability.ObservabilityManager) http.Handler {
	var handler http.Handler = s.Routes()
	if om != nil {
		handler = om.HTTPMiddleware()(handler)
	}
	return handler
}

// Start serves the API until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, om *observability.ObservabilityManager) error {
	httpServer, err := s.setupHTTPServer(om)
	if err != nil {
		return err
	}
	defer s.cleanup()

	s.displayServerInfo()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server",
			"address", httpServer.Addr,
			"tls_enabled", httpServer.TLSConfig != nil)

		var err error
		if httpServer.TLSConfig != nil {
			// Certificates are already in the TLS config
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Shutdown requested, starting graceful shutdown")
		return s.performGracefulShutdown(context.WithoutCancel(ctx), httpServer)
	}
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) (*http.Server, error) {
	if s.TLSConfig.AutoReload && s.TLSConfig.Mode != "" && s.TLSConfig.Mode != "disabled" {
		certs, err := NewCertReloader(s.TLSConfig, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to start certificate reloader: %w", err)
		}
		s.certs = certs
	}

	tlsConfig, err := s.buildTLSConfig()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to set up TLS: %w", err)
	}

	return &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(om),
		TLSConfig:    tlsConfig,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}, nil
}

// performGracefulShutdown drains in-flight requests, forcing close on timeout
func (s *Server) performGracefulShutdown(ctx context.Context, server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanup releases the rate limiter and certificate watcher
func (s *Server) cleanup() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
	if s.certs != nil {
		if err := s.certs.Close(); err != nil {
			s.logger.LogError(err, "Failed to stop certificate reloader")
		}
		s.certs = nil
	}
}
