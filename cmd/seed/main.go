package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-identity/config"
	"github.com/oksasatya/go-ddd-identity/internal/application"
	"github.com/oksasatya/go-ddd-identity/internal/container"
	"github.com/oksasatya/go-ddd-identity/pkg/apperror"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
)

// seed registers a demo account through the normal registration path.
// Running it twice is harmless.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	cfg.MailWelcomeEnabled = false

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("startup failed")
	}
	defer c.Close()

	u, err := c.Auth.Register(ctx, application.RegisterInput{
		Email:     getenv("SEED_EMAIL", "demo@example.com"),
		UserName:  "demo",
		Password:  getenv("SEED_PASSWORD", "Password123!"),
		FirstName: "Demo",
		LastName:  "User",
	})
	switch {
	case errors.Is(err, apperror.ErrAlreadyExists):
		logger.Info("seed user already exists")
	case err != nil:
		logger.WithError(err).Fatal("seed failed")
	default:
		logger.WithField("user_id", u.ID).Info("seed user created")
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
