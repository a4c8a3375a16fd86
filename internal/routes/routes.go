package routes

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/coimbatore-discount/internal/handlers"
	"github.com/example/coimbatore-discount/internal/middleware"
	"github.com/example/coimbatore-discount/internal/otp"
	"github.com/example/coimbatore-discount/internal/services"
	"github.com/example/coimbatore-discount/internal/utils"
)

// BodyLimit caps request bodies, image uploads included.
const BodyLimit = 50 * 1024 * 1024

// Deps is everything the HTTP layer needs.
type Deps struct {
	Accounts *services.AccountService
	Offers   *services.OfferService
	Catalog  *services.CatalogService
	Images   *services.ImageService
	OTP      *otp.Store
	ResetOTP *otp.Store
	Sessions *utils.SessionIssuer

	// ExposeOTP echoes issued codes in the send response.
	ExposeOTP bool
	// OTPSendPerMinute limits code requests per client IP. Zero disables it.
	OTPSendPerMinute int
}

// NewApp builds a fiber app with the shared middleware stack.
func NewApp(log *slog.Logger, accessLog bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Coimbatore Deals Backend",
		BodyLimit:    BodyLimit,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(recover.New())
	if accessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New())

	return app
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.OTP, deps.Sessions, deps.ExposeOTP)
	adminHandler := handlers.NewAdminHandler(deps.Accounts, deps.Offers)
	offerHandler := handlers.NewOfferHandler(deps.Offers)
	catalogHandler := handlers.NewCatalogHandler(deps.Catalog)
	imageHandler := handlers.NewImageHandler(deps.Images)
	resetHandler := handlers.NewPasswordResetHandler(deps.Accounts, deps.ResetOTP, deps.ExposeOTP)

	requireAuth := middleware.AuthMiddleware(deps.Sessions)

	app.Get("/", handlers.Health)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/google", authHandler.GoogleLogin)
	auth.Get("/me", requireAuth, authHandler.Me)
	auth.Put("/profile", requireAuth, authHandler.UpdateProfile)
	auth.Post("/otp/send", otpLimiter(deps.OTPSendPerMinute), authHandler.SendOTP)
	auth.Post("/otp/verify", authHandler.VerifyOTP)
	auth.Get("/check", authHandler.CheckAvailability)
	auth.Post("/password/forgot", otpLimiter(deps.OTPSendPerMinute), resetHandler.ForgotPassword)
	auth.Post("/password/reset", resetHandler.ResetPassword)

	// Admin moderation of accounts
	auth.Put("/approve-shop/:id", requireAuth, adminHandler.ApproveShop)
	auth.Get("/pending-shops", requireAuth, adminHandler.PendingShops)
	auth.Get("/approved-shops", requireAuth, adminHandler.ApprovedShops)
	auth.Get("/users", requireAuth, adminHandler.Users)
	auth.Delete("/users/:id", requireAuth, adminHandler.DeleteUser)
	api.Get("/admin/stats", requireAuth, adminHandler.DashboardStats)

	// Offers: fixed paths before /:id
	offers := api.Group("/offers")
	offers.Get("/user/my-offers", requireAuth, offerHandler.Mine)
	offers.Get("/pending", requireAuth, offerHandler.Pending)
	offers.Get("/approved", requireAuth, offerHandler.Approved)
	offers.Get("/", offerHandler.List)
	offers.Get("/:id", offerHandler.Get)
	offers.Post("/:id/notify", offerHandler.Notify)
	offers.Post("/", requireAuth, offerHandler.Create)
	offers.Put("/:id", requireAuth, offerHandler.Update)
	offers.Delete("/:id", requireAuth, offerHandler.Delete)
	offers.Post("/:id/send-alert", requireAuth, offerHandler.SendAlert)
	offers.Put("/:id/approve", requireAuth, offerHandler.Approve)
	offers.Post("/:id/save", requireAuth, offerHandler.ToggleSave)

	// Categories
	categories := api.Group("/categories")
	categories.Get("/", catalogHandler.ListCategories)
	categories.Post("/", requireAuth, catalogHandler.CreateCategory)
	categories.Delete("/:id", requireAuth, catalogHandler.DeleteCategory)

	// Images
	api.Post("/upload", requireAuth, imageHandler.Upload)
	api.Get("/image/:id", imageHandler.Get)
	api.Get("/images", imageHandler.List)
}

func otpLimiter(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many OTP requests. Please try again later.",
			})
		},
	})
}
