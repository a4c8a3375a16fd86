package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/coimbatore-discount/internal/domain"
)

// ErrorHandler renders every error as {"error": message}. Unclassified errors
// are logged and hidden behind a generic 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}

// writeError maps a service failure to a response. Pending approval gets its
// own flag so clients can show the waiting notice.
func writeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, domain.ErrPendingApproval) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":           "Your account is pending Admin Approval.",
			"pendingApproval": true,
		})
	}

	if status, ok := statusFor(err); ok {
		return fiber.NewError(status, err.Error())
	}
	return err
}

func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, true
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, true
	case errors.Is(err, domain.ErrInvalidCredential):
		return fiber.StatusUnauthorized, true
	case errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrExpired):
		return fiber.StatusBadRequest, true
	default:
		return 0, false
	}
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusNotFound, "not found")
	}
	return id, nil
}
