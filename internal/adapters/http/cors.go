package http

import "github.com/gofiber/fiber/v2"

const (
	corsAllowMethods = "POST, GET, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization"
)

// CORSHeadersMiddleware sets the CORS headers on every response, including
// errors, before the rest of the chain runs. An empty origin means "*".
func CORSHeadersMiddleware(origin string) fiber.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(c *fiber.Ctx) error {
		setCORSHeaders(c, origin)
		return c.Next()
	}
}

// PreflightHandler answers OPTIONS on any path with 200 and the CORS headers.
func PreflightHandler(origin string) fiber.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(c *fiber.Ctx) error {
		setCORSHeaders(c, origin)
		return c.SendStatus(fiber.StatusOK)
	}
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
	c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
	c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
	c.Set(fiber.HeaderAccessControlExposeHeaders, fiber.HeaderAccessControlAllowOrigin)
}
