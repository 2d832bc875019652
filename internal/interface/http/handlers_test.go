package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ddd-identity/config"
	"github.com/oksasatya/go-ddd-identity/internal/application"
	"github.com/oksasatya/go-ddd-identity/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-identity/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
	"github.com/oksasatya/go-ddd-identity/pkg/metrics"
	"github.com/oksasatya/go-ddd-identity/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type fixture struct {
	engine *gin.Engine
	svc    *application.AuthService
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := metrics.NewAuthMetrics("handlers", prometheus.NewRegistry())
	tokens := helpers.NewJWTManager(config.TokenConfig{Secret: "h", Issuer: "i", Audience: "a", Lifetime: time.Hour})
	svc := application.NewAuthService(memory.NewUserRepository(), helpers.NewPasswordHasher(bcrypt.MinCost), tokens, logger, m)
	gate := middleware.NewGate(tokens, logger, m)

	auth := NewAuthHandler(svc, logger)
	users := NewUserHandler(svc, application.NewDirectoryService(nil, "", logger), logger)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.POST("/api/auth/register", auth.Register)
	r.POST("/api/auth/login", auth.Login)
	r.GET("/api/me", gate.Protect(users.Me))
	r.GET("/api/health/me", gate.Protect(users.Me))
	r.GET("/api/users/search", gate.Protect(users.Search))
	r.GET("/health", Health)
	return fixture{engine: r, svc: svc}
}

func (f fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegister_Responses(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/register", "", `{"email":"u@x.com","userName":"u","password":"Secret123"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "u@x.com", data["email"])
	assert.Equal(t, "u", data["userName"])
	assert.NotEmpty(t, data["userId"])

	rec = f.do(http.MethodPost, "/api/auth/register", "", `{"email":"u@x.com","userName":"u","password":"Secret123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPost, "/api/auth/register", "", `{"email":"u@x.com"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode(t, rec)["message"])

	rec = f.do(http.MethodPost, "/api/auth/register", "", `{"email":"v@x.com","userName":"v","password":"1234567"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Validation failed", body["message"])
	fields := body["error"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "password", fields[0].(map[string]any)["field"])
}

func TestRegister_MultibytePasswordOverLimit(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/register", "", `{"email":"m@x.com","userName":"m","password":"`+strings.Repeat("é", 40)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Validation failed", body["message"])
	fields := body["error"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "password", fields[0].(map[string]any)["field"])
}

func TestLogin_Responses(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), application.RegisterInput{Email: "u@x.com", UserName: "u", Password: "Secret123"})
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/api/auth/login", "", `{"email":"U@x.com","password":"Secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.NotEmpty(t, data["token"])
	assert.NotEmpty(t, data["expiresAt"])

	for _, payload := range []string{
		`{"email":"u@x.com","password":"Wrong1234"}`,
		`{"email":"ghost@x.com","password":"Secret123"}`,
	} {
		rec = f.do(http.MethodPost, "/api/auth/login", "", payload)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid email or password", decode(t, rec)["message"])
	}

	rec = f.do(http.MethodPost, "/api/auth/login", "", `{"email":"u@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe_RequiresIdentity(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing authorization header", decode(t, rec)["message"])

	rec = f.do(http.MethodGet, "/api/health/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "user not authenticated", decode(t, rec)["message"])
}

func TestMe_UnknownSubject(t *testing.T) {
	f := newFixture(t)
	token, _, err := f.svc.Tokens.Issue(helpers.Identity{UserID: "deleted-user"})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/me", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch_Validation(t *testing.T) {
	f := newFixture(t)
	token, _, err := f.svc.Tokens.Issue(helpers.Identity{UserID: "someone"})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/users/search", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/users/search?q=ann", token, "")
	assert.Equal(t, http.StatusOK, rec.Code, "disabled directory returns no hits")
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"auth"}`, rec.Body.String())
}
