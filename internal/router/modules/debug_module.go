package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oksasatya/go-ddd-identity/pkg/metrics"
)

// DebugModule serves Prometheus metrics at /api/debug/metrics.
type DebugModule struct {
	Gatherer prometheus.Gatherer
}

func NewDebugModule(g prometheus.Gatherer) *DebugModule { return &DebugModule{Gatherer: g} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/debug/metrics", gin.WrapH(metrics.Handler(m.Gatherer)))
}
