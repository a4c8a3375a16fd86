package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/models"
	"github.com/example/coimbatore-discount/internal/services"
)

// CatalogHandler manages offer categories.
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListCategories returns every category.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(categories)
}

// CreateCategory adds a category. Admin only.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var payload models.Category
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	category, err := h.catalog.CreateCategory(c.UserContext(), isAdmin(c), payload)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(category)
}

// DeleteCategory removes a category. Admin only; unknown ids succeed.
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	err := h.catalog.DeleteCategory(c.UserContext(), isAdmin(c), c.Params("id"))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Category deleted"})
}
