package router

import (
	"github.com/oksasatya/go-ddd-identity/internal/container"
	handlers "github.com/oksasatya/go-ddd-identity/internal/interface/http"
	"github.com/oksasatya/go-ddd-identity/internal/router/modules"
)

// InitModules builds the handlers from c and adds their modules to r.
// Call once at startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	authHandler := handlers.NewAuthHandler(c.Auth, c.Logger)
	userHandler := handlers.NewUserHandler(c.Auth, c.Directory, c.Logger)

	r.Engine.GET("/health", handlers.Health)
	r.Add(
		modules.NewHealthModule(),
		modules.NewAuthModule(authHandler),
		modules.NewUserModule(userHandler, c.Gate),
	)
	if c.Cfg.MetricsEnabled {
		r.Add(modules.NewDebugModule(c.Registry))
	}
}
