package controller

import (
	"context"
	"net/http"
	"time"

	"quiz_backend/internal/util"
	"quiz_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger 由存储层实现
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	Store  Pinger
	Driver string
}

func NewHealthController(store Pinger, driver string) *HealthController {
	return &HealthController{Store: store, Driver: driver}
}

// Liveness 进程存活探针
func (c *HealthController) Liveness(ctx *gin.Context) {
	ctx.String(http.StatusOK, "Backend server is running!")
}

// @Summary 健康检查
// @Description 检查服务与存储状态
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := c.Store.Ping(pingCtx); err != nil {
		logger.Log.Warn("Health check failed", zap.String("driver", c.Driver), zap.Error(err))
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	util.Success(ctx, gin.H{
		"status": "ok",
		"driver": c.Driver,
		"components": gin.H{
			"database": "up",
		},
	})
}
