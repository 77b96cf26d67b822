package server

import (
	"net/http"

	"marketplace/internal/config"
	"marketplace/internal/handler"
	"marketplace/internal/middleware"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Orders      *handler.OrderHandler
	Fulfillment *handler.FulfillmentHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	orders := e.Group("/orders", middleware.AuthJWT(cfg.JWTSecret))
	h.Orders.RegisterRoutes(orders)
	h.Fulfillment.RegisterRoutes(orders)
}
