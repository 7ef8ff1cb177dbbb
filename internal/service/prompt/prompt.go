// Package prompt 提供系统提示词构建
package prompt

import (
	"strings"

	"github.com/ashwinyue/agent-chat/internal/model"
)

const basePrompt = "You are a helpful AI assistant. Answer naturally and accurately. " +
	"When document context is provided in a system message prefixed with RAG_CONTEXT:, " +
	"ground your answer in that context and cite the relevant file when useful."

const thinkDirective = "Think mode is enabled: reason step by step before answering. " +
	"Structure longer answers with short sections, and state your assumptions explicitly."

// Builder 系统提示词构建器
// 枚举启用/禁用的工具并显式禁止调用已禁用工具；think_mode 仅作为表述指令，不对应任何工具
type Builder struct{}

// NewBuilder 创建提示词构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// Build 构建系统提示词
func (b *Builder) Build(settings model.ChatSettings, enabled, disabled []string) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)

	if len(enabled) > 0 {
		sb.WriteString("\n\nEnabled tools: ")
		sb.WriteString(strings.Join(enabled, ", "))
		sb.WriteString(". Use them only when they genuinely help answer the user.")
	} else {
		sb.WriteString("\n\nNo tools are enabled for this conversation.")
	}

	if len(disabled) > 0 {
		sb.WriteString("\nDisabled tools: ")
		sb.WriteString(strings.Join(disabled, ", "))
		sb.WriteString(". These are unavailable. Do not call them and do not claim to have used them.")
	}

	if settings.ThinkMode {
		sb.WriteString("\n\n")
		sb.WriteString(thinkDirective)
	}

	return sb.String()
}
