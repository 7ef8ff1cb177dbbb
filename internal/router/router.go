package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/agent-chat/internal/config"
	"github.com/ashwinyue/agent-chat/internal/handler"
	"github.com/ashwinyue/agent-chat/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h *handler.Handlers) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigins))

	// 健康检查
	r.GET("/health", h.System.Health)

	// Chat 对话
	r.POST("/chat", h.Chat.Chat)

	// Files 文件
	r.POST("/files/upload", h.File.Upload)
	r.GET("/files", h.File.ListFiles)

	return r
}
