package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	xlogger "SupraView/pkg/logger"
)

// RequestLogging logs one line per HTTP request.
func RequestLogging(l *xlogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			l.Info("http request",
				xlogger.String("method", req.Method),
				xlogger.String("uri", req.RequestURI),
				xlogger.String("remote", req.RemoteAddr),
				xlogger.Int("status", res.Status),
				xlogger.Duration("latency", time.Since(start)),
			)

			return err
		}
	}
}
