// Package web exposes the scan service over HTTP: a small JSON API for
// starting, cancelling and listing scans, plus a websocket stream of
// live progress events.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/framelab/go-reframe/internal/log"
	"github.com/framelab/go-reframe/pkg/hub"
	"github.com/framelab/go-reframe/pkg/service"
	"github.com/framelab/go-reframe/pkg/store"
)

// Server is the scan API server.
type Server struct {
	app  *fiber.App
	port string

	svc   *service.Service
	store *store.Store

	// progressHub broadcasts service events to websocket clients.
	progressHub *hub.Hub
}

// NewServer wires the API around a scan service. It installs itself as
// the service's event sink so every progress event reaches connected
// websocket clients.
func NewServer(port string, svc *service.Service, st *store.Store) *Server {
	s := &Server{
		port:        port,
		svc:         svc,
		store:       st,
		progressHub: hub.New("progress"),
	}

	svc.OnEvent = func(ev service.Event) {
		if err := s.progressHub.BroadcastJSON(ev); err != nil {
			log.Warn("broadcasting event failed", "error", err)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:               "reframe",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/scans", s.handleListScans)
	api.Get("/scans/:id", s.handleGetScan)
	api.Post("/scans", s.handleStartScan)
	api.Post("/scans/cancel", s.handleCancelScan)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/progress", websocket.New(s.handleProgressWS))

	s.app = app
	return s
}

// Start runs the hub and listens for connections. Blocks.
func (s *Server) Start() error {
	go s.progressHub.Run()
	log.Info("scan API listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// handleProgressWS streams scan events to a websocket client until it
// disconnects.
func (s *Server) handleProgressWS(c *websocket.Conn) {
	hub.NewClient(s.progressHub, c).Run()
}
