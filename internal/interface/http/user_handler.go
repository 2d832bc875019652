package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/internal/application"
	"github.com/oksasatya/go-ddd-identity/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-identity/pkg/response"
)

// UserHandler serves endpoints behind the auth gate.
type UserHandler struct {
	Svc       *application.AuthService
	Directory *application.DirectoryService
	Logger    *logrus.Logger
}

func NewUserHandler(svc *application.AuthService, dir *application.DirectoryService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Directory: dir, Logger: logger}
}

// authenticated writes the right 401 and reports false unless auth carries an identity.
func authenticated(c *gin.Context, auth middleware.AuthResult) bool {
	if auth.Rejected() {
		auth.Reject(c)
		return false
	}
	if auth.UserID() == "" {
		response.Abort(c, response.Error[any](c, http.StatusUnauthorized, "user not authenticated", nil))
		return false
	}
	return true
}

// Me GET /api/me
func (h *UserHandler) Me(c *gin.Context, auth middleware.AuthResult) {
	if !authenticated(c, auth) {
		return
	}
	u, err := h.Svc.GetUserByID(c.Request.Context(), auth.UserID())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Write(c, response.Success(c, http.StatusOK, u, "profile", nil))
}

// Deactivate DELETE /api/me
func (h *UserHandler) Deactivate(c *gin.Context, auth middleware.AuthResult) {
	if !authenticated(c, auth) {
		return
	}
	if err := h.Svc.Deactivate(c.Request.Context(), auth.UserID()); err != nil {
		response.FromError(c, err)
		return
	}
	response.Write(c, response.Success[any](c, http.StatusOK, gin.H{"deactivated": true}, "account deactivated", nil))
}

// Search GET /api/users/search?q=&size=
func (h *UserHandler) Search(c *gin.Context, auth middleware.AuthResult) {
	if !authenticated(c, auth) {
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Write(c, response.Error[any](c, http.StatusBadRequest, "query parameter q is required", nil))
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	hits, err := h.Directory.Search(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).WithField("q", q).Error("directory search failed")
		response.Write(c, response.Error[any](c, http.StatusBadGateway, "search unavailable", nil))
		return
	}
	response.Write(c, response.Success(c, http.StatusOK, hits, "users", map[string]any{"count": len(hits)}))
}
