// Package web serves the local kiosk status UI: a JSON status endpoint, a
// live event stream, the camera preview, and a manual trigger. It only
// observes the capture loop and session controllers through their public
// surfaces.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/attendify/kiosk/internal/attendify"
	"github.com/attendify/kiosk/internal/capture"
	"github.com/attendify/kiosk/internal/session"
)

// Server is the kiosk status web server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	loop       *capture.Controller
	sess       *session.Controller
	api        *attendify.Client
}

// NewServer wires the status routes over the capture loop and session
// controllers.
func NewServer(host string, port int, loop *capture.Controller, sess *session.Controller, api *attendify.Client) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		loop:   loop,
		sess:   sess,
		api:    api,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))
		r.Get("/api/status", s.handleStatus)
		r.Get("/api/preview.jpg", s.handlePreview)
		r.Post("/api/trigger", s.handleTrigger)
	})
	// No timeout on the event stream; it stays open until the client
	// disconnects.
	r.Get("/api/events", s.handleEvents)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting kiosk status server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
