package handler

import (
	"github.com/ashwinyue/agent-chat/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chat   *ChatHandler
	File   *FileHandler
	System *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Chat:   NewChatHandler(svc),
		File:   NewFileHandler(svc),
		System: NewSystemHandler(svc),
	}
}
