package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/internal/application"
	"github.com/oksasatya/go-ddd-identity/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-identity/pkg/apperror"
	"github.com/oksasatya/go-ddd-identity/pkg/response"
	"github.com/oksasatya/go-ddd-identity/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.AuthService
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	UserName  string `json:"userName" binding:"required,max=64"`
	Password  string `json:"password" binding:"required,pwd"`
	FirstName string `json:"firstName" binding:"omitempty,max=64"`
	LastName  string `json:"lastName" binding:"omitempty,max=64"`
}

type registerResponse struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	UserName string `json:"userName"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Email:     req.Email,
		UserName:  req.UserName,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.Logger.WithFields(logrus.Fields{"user_id": u.ID, "ip": middleware.ClientIP(c)}).Info("registration succeeded")
	response.Write(c, response.Success(c, http.StatusCreated, registerResponse{
		UserID:   u.ID,
		Email:    u.Email,
		UserName: u.UserName,
	}, "User registered successfully", nil))
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if apperror.HTTPStatus(err) == http.StatusUnauthorized {
			h.Logger.WithField("ip", middleware.ClientIP(c)).Warn("login failed")
		}
		response.FromError(c, err)
		return
	}
	response.Write(c, response.Success(c, http.StatusOK, res, "Login successful", nil))
}

// bindError answers a failed bind: field errors for validation failures,
// a generic message for anything that could not be decoded.
func (h *AuthHandler) bindError(c *gin.Context, err error) {
	if fields, ok := validation.ToFieldErrors(err); ok {
		response.Write(c, response.Error[any](c, http.StatusBadRequest, "Validation failed", fields))
		return
	}
	if !validation.IsMalformedBody(err) {
		h.Logger.WithError(err).WithField("path", c.FullPath()).Warn("unexpected bind error")
	}
	response.Write(c, response.Error[any](c, http.StatusBadRequest, "Invalid request body", nil))
}
