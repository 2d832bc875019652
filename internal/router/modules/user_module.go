package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-identity/internal/interface/http"
	"github.com/oksasatya/go-ddd-identity/internal/interface/middleware"
)

// UserModule wires the protected user endpoints:
// GET /api/me, DELETE /api/me, GET /api/users/search.
// Each handler gets the gate's decision and answers rejections itself.
type UserModule struct {
	Handler *handlers.UserHandler
	Gate    *middleware.Gate
}

func NewUserModule(h *handlers.UserHandler, gate *middleware.Gate) *UserModule {
	return &UserModule{Handler: h, Gate: gate}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rg.GET("/me", m.Gate.Protect(m.Handler.Me))
	rg.DELETE("/me", m.Gate.Protect(m.Handler.Deactivate))
	rg.GET("/users/search", m.Gate.Protect(m.Handler.Search))
}
