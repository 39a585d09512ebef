package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smukkama/aqi-forecast/pkg/config"
)

// HTTPServer serves the dashboard until stopped
type HTTPServer struct {
	config   *config.HTTPConfig
	server   *http.Server
	listener net.Listener
	logger   logrus.FieldLogger
	wg       sync.WaitGroup
}

// NewHTTPServer creates a new HTTP server for handler
func NewHTTPServer(cfg *config.HTTPConfig, handler http.Handler, logger logrus.FieldLogger) *HTTPServer {
	return &HTTPServer{
		config: cfg,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start starts listening and serving in the background
func (s *HTTPServer) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.listener = listener
	s.logger.WithField("addr", listener.Addr().String()).Info("HTTP server listening")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()
	return nil
}

// Addr returns the bound address, useful when listening on port 0
func (s *HTTPServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop stops the HTTP server gracefully
func (s *HTTPServer) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.wg.Wait()
	s.logger.Info("HTTP server stopped")
	return err
}
