package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/routes"
)

func main() {
	cfg := config.LoadAuth()
	cfg.ConfigureLogging()

	db, err := database.Connect(cfg.DatabaseURL, database.AuthModels...)
	if err != nil {
		logrus.Fatalf("postgres connect: %s", err)
	}
	logrus.Print("connected to postgres")

	app := fiber.New(fiber.Config{
		AppName:      "Storefront Auth",
		ErrorHandler: middleware.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	routes.RegisterAuth(app, db, cfg)

	go func() {
		logrus.Printf("starting auth service on :%s", cfg.AppPort)
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			logrus.Fatalf("fiber.Listen error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Print("shutting down auth service")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logrus.Errorf("shutdown: %v", err)
	}
}
