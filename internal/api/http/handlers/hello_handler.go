package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// HelloHandler serves role-gated demonstration endpoints.
type HelloHandler struct{}

// NewHelloHandler returns a new handler instance.
func NewHelloHandler() *HelloHandler {
	return &HelloHandler{}
}

// User handles GET /hello/user, reachable with ROLE_USER.
func (h *HelloHandler) User(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Hello user"})
}

// Admin handles GET /hello/admin, reachable with ROLE_ADMIN.
func (h *HelloHandler) Admin(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Hello admin"})
}
