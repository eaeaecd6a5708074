package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dylanc316/essayhuzz/config"
	"github.com/dylanc316/essayhuzz/db"
	"github.com/dylanc316/essayhuzz/internal/auth/handler"
	repo "github.com/dylanc316/essayhuzz/internal/auth/repository/postgres"
	"github.com/dylanc316/essayhuzz/internal/auth/service"
	"github.com/dylanc316/essayhuzz/internal/logging"
	"github.com/dylanc316/essayhuzz/internal/mail"
)

func main() {
	cfg := config.Load()

	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	ctx := context.Background()

	if err := db.Migrate(cfg.DBURL); err != nil {
		log.Error(ctx, "migration failed", "error", err)
		os.Exit(1)
	}

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		log.Error(ctx, "database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	var mailer mail.Mailer
	if cfg.ResendAPIKey != "" {
		mailer = mail.NewResendMailer(cfg.ResendAPIKey, cfg.EmailSender, cfg.AppBaseURL)
	} else {
		if cfg.IsProduction() {
			log.Warn(ctx, "RESEND_API_KEY not set, falling back to log mail transport")
		}
		mailer = mail.NewLogMailer(log, cfg.AppBaseURL)
	}

	userRepo := repo.NewPostgresRepository(dbPool)
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	userService := service.NewUserService(userRepo, tokenService, mailer, cfg, log)
	authHandler := handler.NewAuthHandler(userService, tokenService, cfg)
	session := handler.NewSessionMiddleware(tokenService, cfg.IsProduction())

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())
	handler.RegisterRoutes(app, authHandler, session)

	log.Info(ctx, "starting server", "port", cfg.Port, "env", cfg.Env)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}
