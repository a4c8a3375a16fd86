package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/middleware"
	"github.com/example/coimbatore-discount/internal/services"
)

// OfferHandler exposes offer CRUD, moderation and subscriptions.
type OfferHandler struct {
	offers *services.OfferService
}

// NewOfferHandler constructs OfferHandler.
func NewOfferHandler(offers *services.OfferService) *OfferHandler {
	return &OfferHandler{offers: offers}
}

func offerError(c *fiber.Ctx, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Offer not found")
	}
	return writeError(c, err)
}

func caller(c *fiber.Ctx) (services.Caller, error) {
	who, ok := middleware.CurrentCaller(c)
	if !ok {
		return services.Caller{}, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return who, nil
}

// List returns approved offers, highest priority first.
func (h *OfferHandler) List(c *fiber.Ctx) error {
	offers, err := h.offers.ListPublic(c.UserContext(), pageFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(offers)
}

// Get returns a single offer by id.
func (h *OfferHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Offer not found")
	}

	offer, err := h.offers.GetByID(c.UserContext(), id)
	if err != nil {
		return offerError(c, err)
	}
	return c.JSON(offer)
}

// Mine returns the caller's own offers in any moderation state.
func (h *OfferHandler) Mine(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return err
	}

	offers, err := h.offers.ListMine(c.UserContext(), who.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(offers)
}

// Pending lists offers awaiting approval. Admin only.
func (h *OfferHandler) Pending(c *fiber.Ctx) error {
	offers, err := h.offers.ListPending(c.UserContext(), isAdmin(c), pageFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(offers)
}

// Approved lists approved offers with their owners. Admin only.
func (h *OfferHandler) Approved(c *fiber.Ctx) error {
	offers, err := h.offers.ListApproved(c.UserContext(), isAdmin(c), pageFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(offers)
}

// Create submits a new offer for review.
func (h *OfferHandler) Create(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return err
	}

	var patch services.Patch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	offer, err := h.offers.Create(c.UserContext(), who.ID, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(offer)
}

// Update edits an offer owned by the caller, or any offer for admins.
func (h *OfferHandler) Update(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Offer not found")
	}

	var patch services.Patch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	offer, err := h.offers.Update(c.UserContext(), who, id, patch)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return fiber.NewError(fiber.StatusForbidden, "Not authorized to update this offer")
		}
		return offerError(c, err)
	}
	return c.JSON(offer)
}

// Delete removes an offer. Deleting an unknown offer succeeds.
func (h *OfferHandler) Delete(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(fiber.Map{"message": "Offer deleted"})
	}

	if err := h.offers.Delete(c.UserContext(), who, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case errors.Is(err, domain.ErrForbidden):
			return fiber.NewError(fiber.StatusForbidden, "Not authorized to delete this offer")
		default:
			return writeError(c, err)
		}
	}
	return c.JSON(fiber.Map{"message": "Offer deleted"})
}

// Approve publishes an offer. Admin only.
func (h *OfferHandler) Approve(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Offer not found")
	}

	offer, err := h.offers.Approve(c.UserContext(), isAdmin(c), id)
	if err != nil {
		return offerError(c, err)
	}
	return c.JSON(offer)
}

// ToggleSave bookmarks or un-bookmarks an offer for the caller.
func (h *OfferHandler) ToggleSave(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Offer not found")
	}

	saved, err := h.offers.ToggleSave(c.UserContext(), who.ID, id)
	if err != nil {
		return offerError(c, err)
	}

	message := "Offer removed from saved"
	if saved {
		message = "Offer saved successfully"
	}
	return c.JSON(fiber.Map{"message": message, "isSaved": saved})
}

type notifyRequest struct {
	Email string `json:"email"`
}

// Notify subscribes an email to the offer's launch alert.
func (h *OfferHandler) Notify(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Offer not found")
	}

	var req notifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.offers.SubscribeForLaunch(c.UserContext(), id, req.Email); err != nil {
		return offerError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Subscribed successfully"})
}

// SendAlert emails every launch subscriber. Owner or admin only.
func (h *OfferHandler) SendAlert(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Offer not found")
	}

	result, err := h.offers.NotifySubscribers(c.UserContext(), who, id)
	if err != nil {
		return offerError(c, err)
	}

	if result.Subscribers == 0 {
		return c.JSON(fiber.Map{"message": "No subscribers to notify"})
	}
	return c.JSON(fiber.Map{
		"message":       fmt.Sprintf("Alert sent to %d subscribers", result.Notified),
		"notifiedCount": result.Notified,
	})
}
