package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"askfan-notify/internal/common/config"
	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/common/metrics"
	"askfan-notify/internal/common/observability"
)

// Server wraps the Echo instance serving the relay API.
type Server struct {
	echo   *echo.Echo
	cfg    config.ServerConfig
	logger logger.Logger
}

func NewServer(cfg config.ServerConfig, handler *Handler, obs *observability.Observability, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(requestMetrics(obs))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler.RegisterRoutes(e.Group("/api"))

	return &Server{echo: e, cfg: cfg, logger: log}
}

// requestMetrics records per-route request duration and status counts.
func requestMetrics(obs *observability.Observability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			elapsed := time.Since(start)

			route := c.Path()
			metrics.RelayRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
			if obs != nil {
				status := "ok"
				if err != nil {
					status = "error"
				}
				ctx := c.Request().Context()
				obs.RecordRequest(ctx, route, status)
				obs.RecordRequestDuration(ctx, elapsed, route)
			}
			return err
		}
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.echo.Server.ReadTimeout = time.Duration(s.cfg.ReadTimeout) * time.Millisecond
	s.echo.Server.WriteTimeout = time.Duration(s.cfg.WriteTimeout) * time.Millisecond

	s.logger.Info("relay server listening", map[string]interface{}{"address": s.cfg.Address})
	if err := s.echo.Start(s.cfg.Address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
