package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// requestID returns the id set by the requestid middleware, if any.
func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// Logger logs one line per request. The session endpoint is polled by the
// dashboard every second, so successful polls are logged at debug.
func Logger(logger *slog.Logger, quietPaths ...string) fiber.Handler {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Resolve the error here so the logged status is the one sent.
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		status := c.Response().StatusCode()

		logLevel := slog.LevelInfo
		switch {
		case status >= 500:
			logLevel = slog.LevelError
		case status >= 400:
			logLevel = slog.LevelWarn
		default:
			if _, ok := quiet[c.Path()]; ok {
				logLevel = slog.LevelDebug
			}
		}

		logger.Log(c.UserContext(), logLevel, "http request",
			slog.String("request_id", requestID(c)),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
		)

		return nil
	}
}
