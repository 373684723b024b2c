// Package rayid tags every request with a RayID.
package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const (
	// Header carries the RayID in requests and responses.
	Header = "X-Ray-ID"
	// LocalKey is the fiber.Ctx local holding the RayID.
	LocalKey = "ray_id"
)

// New returns the middleware. An incoming X-Ray-ID header is reused.
func New() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     Header,
		ContextKey: LocalKey,
		Generator:  uuid.NewString,
	})
}
