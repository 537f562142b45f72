package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/routes"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/store"
)

func main() {
	cfg := config.LoadOrders()
	cfg.ConfigureLogging()

	db, err := database.Connect(cfg.DatabaseURL, database.OrdersModels...)
	if err != nil {
		logrus.Fatalf("postgres connect: %s", err)
	}
	logrus.Print("connected to postgres")

	otpStore, closeOTPStore := openOTPStore(cfg, store.NewOTPStore(db))
	defer closeOTPStore()

	otpService := services.NewOTPService(
		otpStore,
		services.NewEmailSender(cfg.SendGridAPIKey, cfg.EmailSender, cfg.EmailFromName),
		services.NewSMSSender(cfg.SMSGatewayURL, cfg.SMSGatewayKey),
		services.WithOTPTTL(cfg.OTPTTL),
	)

	janitor, err := services.StartOTPJanitor(cfg.OTPPurgeSchedule, otpService)
	if err != nil {
		logrus.Fatalf("otp janitor: %s", err)
	}
	defer janitor.Stop()

	events := services.NewEventPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic)
	if closer, ok := events.(io.Closer); ok {
		defer func() {
			if cerr := closer.Close(); cerr != nil {
				logrus.Errorf("event publisher close: %v", cerr)
			}
		}()
	}

	orderService := services.NewOrderService(
		store.NewOrderStore(db),
		otpService,
		services.NewShopDirectoryClient(cfg.AuthServiceURL, cfg.ServiceKey, cfg.ShopLookupTimeout),
		services.WithShopLookupTimeout(cfg.ShopLookupTimeout),
		services.WithEventPublisher(events),
	)

	app := fiber.New(fiber.Config{
		AppName:      "Storefront Orders",
		ErrorHandler: middleware.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	routes.RegisterOrders(app, routes.OrdersDeps{
		DB:       db,
		Config:   cfg,
		OTP:      otpService,
		Orders:   orderService,
		Telegram: services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat),
	})

	go func() {
		logrus.Printf("starting orders service on :%s", cfg.AppPort)
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			logrus.Fatalf("fiber.Listen error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Print("shutting down orders service")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logrus.Errorf("shutdown: %v", err)
	}
}

// openOTPStore picks the OTP backend named by OTP_STORE.
func openOTPStore(cfg *config.OrdersConfig, fallback services.OTPStore) (services.OTPStore, func()) {
	if cfg.OTPStore != "redis" {
		return fallback, func() {}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("redis connect: %s", err)
	}
	logrus.WithField("addr", cfg.RedisAddr).Print("otp codes stored in redis")

	return store.NewRedisOTPStore(rdb), func() {
		if err := rdb.Close(); err != nil {
			logrus.Errorf("redis close: %v", err)
		}
	}
}
