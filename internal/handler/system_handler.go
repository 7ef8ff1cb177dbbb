package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/agent-chat/internal/service"
)

// SystemHandler 系统处理器
type SystemHandler struct {
	svc *service.Services
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(svc *service.Services) *SystemHandler {
	return &SystemHandler{svc: svc}
}

// Health 健康检查
// GET /health
//
// 依赖探测失败不影响 200：状态细节由响应体报告
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	database := "ok"
	if sqlDB, err := h.svc.Repos.DB.DB(); err != nil {
		database = "unavailable: " + err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		database = "unavailable: " + err.Error()
	}

	elastic := "not_configured"
	if h.svc.VectorStore != nil {
		elastic = "ok"
		if err := h.svc.VectorStore.Ping(ctx); err != nil {
			elastic = "unavailable: " + err.Error()
		}
	}

	chatModel := "ok"
	if h.svc.ChatModel == nil {
		chatModel = "not_configured"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"name":          h.svc.Config.App.Name,
		"version":       h.svc.Config.App.Version,
		"database":      database,
		"elasticsearch": elastic,
		"chat_model":    chatModel,
	})
}
