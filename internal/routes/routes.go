package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

// OrdersDeps carries what the orders service routes need.
type OrdersDeps struct {
	DB       *gorm.DB
	Config   *config.OrdersConfig
	OTP      *services.OTPService
	Orders   *services.OrderService
	Telegram *services.TelegramService
}

// RegisterOrders wires up the orders service routes.
func RegisterOrders(app *fiber.App, deps OrdersDeps) {
	otpHandler := handlers.NewOTPHandler(deps.OTP)
	orderHandler := handlers.NewOrderHandler(deps.Orders, deps.Telegram)
	healthHandler := handlers.NewHealthHandler(deps.DB)
	staffOnly := middleware.AuthMiddleware(deps.Config.JWTSecret)

	app.Get("/healthz", healthHandler.Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	otpLimit := deps.Config.OTPRateLimit
	if otpLimit <= 0 {
		otpLimit = 5
	}
	app.Post("/send-otp", limiter.New(limiter.Config{
		Max:        otpLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many OTP requests, please try again later")
		},
	}), otpHandler.SendOTP)
	app.Post("/verify-otp", otpHandler.VerifyOTP)

	orders := app.Group("/orders")
	orders.Post("/", orderHandler.CreateOrder)
	orders.Get("/shop/:shopId", staffOnly, orderHandler.ListShopOrders)
	orders.Get("/:orderId", orderHandler.GetOrder)
	orders.Patch("/:orderId/status", staffOnly, orderHandler.UpdateStatus)
}

// RegisterAuth wires up the auth service routes.
func RegisterAuth(app *fiber.App, db *gorm.DB, cfg *config.AuthConfig) {
	authHandler := handlers.NewAuthHandler(db, cfg)
	catalogHandler := handlers.NewCatalogHandler(services.NewShopService(db))
	healthHandler := handlers.NewHealthHandler(db)
	staffOnly := middleware.AuthMiddleware(cfg.JWTSecret)

	app.Get("/healthz", healthHandler.Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	internal := app.Group("/internal", middleware.ServiceKeyMiddleware(cfg.ServiceKey))
	internal.Post("/shops/validate", catalogHandler.ValidateShop)

	auth := app.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	categories := app.Group("/categories")
	categories.Get("/", catalogHandler.ListCategories)
	categories.Post("/", staffOnly, catalogHandler.CreateCategory)

	shops := app.Group("/shops")
	shops.Get("/", catalogHandler.ListShops)
	shops.Post("/", staffOnly, catalogHandler.CreateShop)
	shops.Get("/:id", catalogHandler.GetShop)
}
