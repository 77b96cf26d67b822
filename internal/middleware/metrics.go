package middleware

import (
	"strconv"
	"time"

	"marketplace/internal/telemetry"

	"github.com/labstack/echo/v4"
)

// ルート単位で件数と所要時間を記録する
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			telemetry.RequestsTotal.WithLabelValues(method, route, status).Inc()
			telemetry.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
