package httpapi

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/quake-proxy/internal/logging"
	"github.com/i474232898/quake-proxy/internal/metrics"
)

// RequestLogger logs one line per request and records API metrics.
// Handler errors are rendered here so the logged status is the final one.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				logging.Error().Err(err).AnErr("cause", chainErr).Str("path", c.Path()).Msg("failed to render error response")
				c.Status(fiber.StatusInternalServerError)
			}
		}

		latency := time.Since(start)
		status := c.Response().StatusCode()
		endpoint := c.Route().Path

		metrics.APIRequestsTotal.WithLabelValues(c.Method(), endpoint, strconv.Itoa(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Method(), endpoint).Observe(latency.Seconds())

		event := logging.Info()
		if status >= fiber.StatusInternalServerError {
			event = logging.Warn()
		}
		event.
			Str("request_id", requestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", latency).
			Str("ip", c.IP()).
			Msg("request")
		return nil
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
