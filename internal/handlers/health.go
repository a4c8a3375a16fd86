package handlers

import "github.com/gofiber/fiber/v2"

// Health reports that the server is up.
func Health(c *fiber.Ctx) error {
	return c.SendString("Coimbatore Deals Backend is Running!")
}
