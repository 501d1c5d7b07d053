// Package server exposes the conversions over HTTP with gin.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/soundprediction/labelkit"
	"github.com/soundprediction/labelkit/pkg/config"
	"github.com/soundprediction/labelkit/pkg/server/handlers"
	"github.com/soundprediction/labelkit/pkg/types"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	client *labelkit.Client
	server *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, client *labelkit.Client) *Server {
	return &Server{
		config: cfg,
		client: client,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler()
	convertHandler := handlers.NewConvertHandler(s.client)

	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/convert/coco", convertHandler.COCO)

		nd := v1.Group("/ndjson")
		{
			nd.POST("/validate", convertHandler.ValidateNDJSON)
			nd.POST("/rows", convertHandler.UploadRows)
		}

		v1.POST("/vectorize", convertHandler.Vectorize)
	}
}

// Handler returns the configured router. Setup must be called first.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server
func (s *Server) Start() error {
	s.client.Logger().Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.client.Logger().Info("stopping server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Job-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// contextMiddleware tags the request context with a job id, taken from the
// X-Job-ID header or generated, so telemetry events can be correlated.
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		jobID := c.GetHeader("X-Job-ID")
		if jobID == "" {
			jobID = uuid.NewString()
		}
		ctx = context.WithValue(ctx, types.ContextKeyJobID, jobID)
		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")
		c.Header("X-Job-ID", jobID)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
