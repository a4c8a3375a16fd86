package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/coimbatore-discount/internal/middleware"
	"github.com/example/coimbatore-discount/internal/models"
	"github.com/example/coimbatore-discount/internal/otp"
	"github.com/example/coimbatore-discount/internal/services"
	"github.com/example/coimbatore-discount/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	accounts   *services.AccountService
	otps       *otp.Store
	sessions   *utils.SessionIssuer
	exposeCode bool
}

// NewAuthHandler constructs an AuthHandler. When exposeCode is set the OTP is
// echoed back to the caller for development without a mail server.
func NewAuthHandler(accounts *services.AccountService, otps *otp.Store, sessions *utils.SessionIssuer, exposeCode bool) *AuthHandler {
	return &AuthHandler{
		accounts:   accounts,
		otps:       otps,
		sessions:   sessions,
		exposeCode: exposeCode,
	}
}

type sessionUser struct {
	ID          string             `json:"id"`
	Username    string             `json:"username"`
	Email       string             `json:"email"`
	IsAdmin     bool               `json:"isAdmin"`
	IsShopOwner bool               `json:"isShopOwner"`
	ShopDetails models.ShopDetails `json:"shopDetails"`
}

func (h *AuthHandler) respondWithSession(c *fiber.Ctx, account *models.Account) error {
	token, err := h.sessions.Issue(account)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": sessionUser{
			ID:          account.ID.String(),
			Username:    account.Username,
			Email:       account.Email,
			IsAdmin:     account.IsAdmin,
			IsShopOwner: account.IsShopOwner,
			ShopDetails: account.ShopDetails,
		},
	})
}

// Register creates a new password account.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if _, err := h.accounts.Register(c.UserContext(), req); err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with email and password.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	account, err := h.accounts.AuthenticateWithPassword(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return h.respondWithSession(c, account)
}

type externalLoginRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
	GoogleID string `json:"googleId"`
}

// GoogleLogin signs in an identity asserted by Google, registering it on first
// use.
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	var req externalLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	account, err := h.accounts.AuthenticateWithExternalIdentity(c.UserContext(), req.Email, req.Name)
	if err != nil {
		return writeError(c, err)
	}

	return h.respondWithSession(c, account)
}

// Me returns the caller's account with saved offers expanded.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	profile, err := h.accounts.Me(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(profile)
}

// UpdateProfile applies a partial update to the caller's own account.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var patch services.Patch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	account, err := h.accounts.UpdateProfile(c.UserContext(), userID, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(account)
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

// SendOTP issues a login code for an email address.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	code, err := h.otps.Issue(c.UserContext(), strings.TrimSpace(req.Email))
	if err != nil {
		return writeError(c, err)
	}

	resp := fiber.Map{"message": "OTP sent successfully"}
	if h.exposeCode {
		resp["devOtp"] = code
	}
	return c.JSON(resp)
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
	Role  string `json:"role"`
}

// VerifyOTP consumes a login code and then signs in, registers or upgrades
// the account depending on the requested role.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	email := strings.TrimSpace(req.Email)

	if err := h.otps.Verify(c.UserContext(), email, req.OTP); err != nil {
		return writeError(c, err)
	}

	outcome, err := h.accounts.RequestRoleUpgradeOrCreate(c.UserContext(), email, req.Role)
	if err != nil {
		return writeError(c, err)
	}

	switch {
	case outcome.PendingApproval && outcome.Created:
		return c.JSON(fiber.Map{
			"message":         "Account created successfully. Please wait for Admin Approval to login.",
			"pendingApproval": true,
		})
	case outcome.PendingApproval:
		return c.JSON(fiber.Map{
			"message":         "Account upgraded to Shop Owner. Please wait for Admin Approval to login.",
			"pendingApproval": true,
		})
	}

	return h.respondWithSession(c, outcome.Account)
}

// CheckAvailability reports whether an email or username is free.
func (h *AuthHandler) CheckAvailability(c *fiber.Ctx) error {
	available, err := h.accounts.CheckAvailability(c.UserContext(), c.Query("email"), c.Query("username"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"available": available})
}
