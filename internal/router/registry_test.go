package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingModule struct{}

func (pingModule) Register(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("seen")) })
}

func TestRegistry_MiddlewareScopedToAPI(t *testing.T) {
	r := gin.New()
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("seen")) })

	reg := NewRegistry(r)
	reg.Use(func(c *gin.Context) { c.Set("seen", "api") })
	reg.Add(pingModule{})
	reg.RegisterAll()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, "api", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Empty(t, rec.Body.String())
}
