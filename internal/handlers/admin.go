package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/middleware"
	"github.com/example/coimbatore-discount/internal/services"
	"github.com/example/coimbatore-discount/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	accounts *services.AccountService
	offers   *services.OfferService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(accounts *services.AccountService, offers *services.OfferService) *AdminHandler {
	return &AdminHandler{accounts: accounts, offers: offers}
}

func isAdmin(c *fiber.Ctx) bool {
	claims, ok := middleware.GetClaims(c)
	return ok && claims.IsAdmin
}

func pageFrom(c *fiber.Ctx) services.Page {
	p, ok := utils.ParsePagination(c)
	if !ok {
		return services.Page{}
	}
	return services.Page{Limit: p.Limit, Offset: p.Offset}
}

// DashboardStats returns moderation queue sizes for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	admin := isAdmin(c)

	users, err := h.accounts.ListAccounts(ctx, admin, services.Page{})
	if err != nil {
		return writeError(c, err)
	}
	pendingShops, err := h.accounts.ListPendingShops(ctx, admin, services.Page{})
	if err != nil {
		return writeError(c, err)
	}
	approvedShops, err := h.accounts.ListApprovedShops(ctx, admin, services.Page{})
	if err != nil {
		return writeError(c, err)
	}
	pendingOffers, err := h.offers.ListPending(ctx, admin, services.Page{})
	if err != nil {
		return writeError(c, err)
	}
	approvedOffers, err := h.offers.ListApproved(ctx, admin, services.Page{})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"totalUsers":     len(users),
		"pendingShops":   len(pendingShops),
		"approvedShops":  len(approvedShops),
		"pendingOffers":  len(pendingOffers),
		"approvedOffers": len(approvedOffers),
	})
}

// ApproveShop verifies a shop and grants its owner login access.
func (h *AdminHandler) ApproveShop(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if _, err := h.accounts.ApproveShop(c.UserContext(), isAdmin(c), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Shop and Account verified successfully"})
}

// PendingShops lists shop owners waiting for approval.
func (h *AdminHandler) PendingShops(c *fiber.Ctx) error {
	shops, err := h.accounts.ListPendingShops(c.UserContext(), isAdmin(c), pageFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(shops)
}

// ApprovedShops lists verified shop owners.
func (h *AdminHandler) ApprovedShops(c *fiber.Ctx) error {
	shops, err := h.accounts.ListApprovedShops(c.UserContext(), isAdmin(c), pageFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(shops)
}

// Users lists every account, newest first.
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	users, err := h.accounts.ListAccounts(c.UserContext(), isAdmin(c), pageFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(users)
}

// DeleteUser removes an account. Deleting an unknown account succeeds.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if !isAdmin(c) {
		return writeError(c, domain.ErrForbidden)
	}

	id, err := parseID(c)
	if err != nil {
		return c.JSON(fiber.Map{"message": "User deleted successfully"})
	}

	if err := h.accounts.DeleteAccount(c.UserContext(), true, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}
