package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// 1リクエスト1行のアクセスログ
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// echo の HTTPError などはここでレスポンスにする
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			fields := log.Fields{
				"method":     req.Method,
				"path":       c.Path(),
				"uri":        req.RequestURI,
				"status":     res.Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"request_id": res.Header().Get(echo.HeaderXRequestID),
			}
			if id, ok := c.Get(CtxUserIDKey).(int64); ok {
				fields["user_id"] = id
			}

			entry := log.WithFields(fields)
			switch {
			case res.Status >= 500:
				entry.Error("request failed")
			case res.Status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request completed")
			}
			return nil
		}
	}
}
