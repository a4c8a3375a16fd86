package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/otp"
	"github.com/example/coimbatore-discount/internal/services"
)

// PasswordResetHandler manages forgot-password endpoints.
type PasswordResetHandler struct {
	accounts   *services.AccountService
	codes      *otp.Store
	exposeCode bool
}

// NewPasswordResetHandler constructs a PasswordResetHandler. codes must not
// share a backend with the login OTP store.
func NewPasswordResetHandler(accounts *services.AccountService, codes *otp.Store, exposeCode bool) *PasswordResetHandler {
	return &PasswordResetHandler{accounts: accounts, codes: codes, exposeCode: exposeCode}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword emails a reset code to a registered address.
func (h *PasswordResetHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email is required")
	}

	if err := h.accounts.RequireAccount(c.UserContext(), email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return writeError(c, err)
	}

	code, err := h.codes.Issue(c.UserContext(), email)
	if err != nil {
		return writeError(c, err)
	}

	resp := fiber.Map{"message": "Reset code sent"}
	if h.exposeCode {
		resp["devOtp"] = code
	}
	return c.JSON(resp)
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword consumes a reset code and sets the new password.
func (h *PasswordResetHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	email := strings.TrimSpace(req.Email)

	if len(req.NewPassword) < services.MinPasswordLength {
		return fiber.NewError(fiber.StatusBadRequest, "password must be at least 6 characters")
	}

	if err := h.codes.Verify(c.UserContext(), email, req.Code); err != nil {
		return writeError(c, err)
	}

	if err := h.accounts.ResetPassword(c.UserContext(), email, req.NewPassword); err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}
