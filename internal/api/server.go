package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/edmondoalex/buspro-core/internal/core"
	"github.com/edmondoalex/buspro-core/internal/infrastructure/config"
	"github.com/edmondoalex/buspro-core/internal/infrastructure/logging"
)

// Server is the HTTP admin API and WebSocket surface.
type Server struct {
	cfg    *config.Config
	logger *logging.Logger
	core   *core.Core
	hub    *Hub

	httpServer *http.Server
}

// NewServer creates the HTTP surface and its WebSocket hub.
//
// The hub is registered on the core as its broadcaster, so state deltas and
// device-list changes reach connected clients.
func NewServer(cfg *config.Config, c *core.Core, logger *logging.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger.With("component", "api"),
		core:   c,
		hub:    NewHub(cfg.WebSocket, logger.With("component", "ws")),
	}
	c.SetHub(s.hub)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:      s.buildRouter(),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		IdleTimeout:  cfg.GetIdleTimeout(),
	}
	return s
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called; a clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and disconnects WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	return s.httpServer.Shutdown(ctx)
}
