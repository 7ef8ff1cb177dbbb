package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/agent-chat/internal/model"
	"github.com/ashwinyue/agent-chat/internal/service"
)

// ChatHandler 聊天处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Chat 执行一轮对话
// POST /chat
//
// 请求格式错误返回 400；业务失败（如模型未配置、上游不可用）
// 返回 200，响应体 error 字段非空。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	sessionID, err := h.svc.SessionMgr.Resolve(req.SessionID)
	if err != nil {
		InternalServerError(c, "failed to resolve session: "+err.Error())
		return
	}

	resp := h.svc.Orchestrator.HandleTurn(c.Request.Context(), sessionID, req.Messages, req.Settings)

	c.JSON(http.StatusOK, resp)
}
