// README: API gateway; registers gin routes and delegates to the booking workflow.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ridebook/internal/http/handlers"
	"ridebook/internal/http/middleware"
	"ridebook/internal/metrics"
)

type ServerDeps struct {
	Rides  handlers.RideService
	Logger zerolog.Logger
	// MetricsPath is left empty to disable the Prometheus endpoint.
	MetricsPath string
	// Ready reports dependency health for GET /health. Optional.
	Ready func(ctx context.Context) error
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(s.deps.Logger), middleware.Logging(s.deps.Logger))
	if s.deps.MetricsPath != "" {
		r.Use(middleware.Metrics())
		r.GET(s.deps.MetricsPath, gin.WrapH(metrics.Handler()))
	}

	riders := handlers.NewRiderHandler(s.deps.Rides)
	r.POST("/book", riders.Book)
	r.POST("/quote", riders.Quote)
	r.POST("/cancel", riders.Cancel)
	r.GET("/history/:riderId", riders.History)

	drivers := handlers.NewDriverHandler(s.deps.Rides)
	r.POST("/bookings/:id/accept", drivers.Accept)

	r.GET("/health", s.health)
	return r
}

func (s *Server) health(c *gin.Context) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
