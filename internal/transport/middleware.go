package transport

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/labcompare/push-dispatcher/internal/observability"
)

// CorrelationMiddleware tags each request with a correlation id, taken from
// the X-Request-ID header or generated, and threads it through the request
// context for downstream log enrichment.
func CorrelationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := c.Get(fiber.HeaderXRequestID)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), correlationID))
		c.Set(fiber.HeaderXRequestID, correlationID)

		return c.Next()
	}
}
