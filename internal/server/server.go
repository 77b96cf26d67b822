package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/middleware"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	echo *echo.Echo
	http *http.Server
}

func New(cfg config.Config, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger())

	RegisterRoutes(e, cfg, h)

	return &Server{
		echo: e,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           otelhttp.NewHandler(e, "marketplace-api"),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start はブロックする。Shutdown 後は nil を返す
func (s *Server) Start() error {
	log.WithField("addr", s.http.Addr).Info("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
