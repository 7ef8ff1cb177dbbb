// Package orchestrator 驱动单轮工具调用的对话流程
package orchestrator

import (
	"context"
	"fmt"
	"log"

	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/agent-chat/internal/model"
	"github.com/ashwinyue/agent-chat/internal/service/prompt"
	"github.com/ashwinyue/agent-chat/internal/service/tools"
)

// ContextPlanner 为一轮对话提供检索上下文
type ContextPlanner interface {
	BuildContext(ctx context.Context, sessionID string, messages []model.ChatMessage) *schema.Message
}

// Orchestrator 对话编排器
//
// 每轮对话最多执行一轮工具调用：首次模型调用可以请求工具，工具结果
// 回填后的第二次调用不再绑定任何工具，保证流程确定性收敛。
type Orchestrator struct {
	chatModel ecomodel.ToolCallingChatModel
	registry  *tools.Registry
	executor  *tools.Executor
	prompts   *prompt.Builder
	planner   ContextPlanner
}

// New 创建对话编排器
func New(chatModel ecomodel.ToolCallingChatModel, registry *tools.Registry, executor *tools.Executor, prompts *prompt.Builder, planner ContextPlanner) *Orchestrator {
	return &Orchestrator{
		chatModel: chatModel,
		registry:  registry,
		executor:  executor,
		prompts:   prompts,
		planner:   planner,
	}
}

// HandleTurn 处理一轮对话
//
// 业务失败（模型未配置、供应商出错）写入响应的 Error 字段而不是返回
// Go error，由处理器统一以 200 返回。
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID string, messages []model.ChatMessage, settings model.ChatSettings) *model.ChatResponse {
	// tool_calls 序列化为 [] 而不是 null
	resp := &model.ChatResponse{SessionID: sessionID, ToolCalls: []model.ToolCallLog{}}

	if o.chatModel == nil {
		resp.Error = "chat model is not configured"
		return resp
	}

	defs := o.registry.Definitions(settings)
	systemPrompt := o.prompts.Build(settings, o.registry.EnabledNames(settings), o.registry.DisabledNames(settings))

	history := make([]*schema.Message, 0, len(messages)+2)
	history = append(history, schema.SystemMessage(systemPrompt))
	if o.planner != nil {
		if ragMsg := o.planner.BuildContext(ctx, sessionID, messages); ragMsg != nil {
			history = append(history, ragMsg)
		}
	}
	for _, m := range messages {
		history = append(history, toSchemaMessage(m))
	}

	// 首次调用：仅在有启用工具时绑定工具
	caller := o.chatModel
	if len(defs) > 0 {
		infos, err := o.registry.Infos(ctx, settings)
		if err != nil {
			resp.Error = fmt.Sprintf("failed to build tool schemas: %v", err)
			return resp
		}
		caller, err = o.chatModel.WithTools(infos)
		if err != nil {
			resp.Error = fmt.Sprintf("failed to bind tools: %v", err)
			return resp
		}
	}

	first, err := caller.Generate(ctx, history)
	if err != nil {
		resp.Error = fmt.Sprintf("model provider request failed: %v", err)
		resp.AssistantMessage = fallbackMessage(err)
		return resp
	}

	if len(defs) == 0 || len(first.ToolCalls) == 0 {
		resp.AssistantMessage = &model.ChatMessage{Role: model.RoleAssistant, Content: first.Content}
		return resp
	}

	// 唯一的一轮工具执行
	calls := make([]tools.Call, len(first.ToolCalls))
	for i, tc := range first.ToolCalls {
		calls[i] = tools.Call{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments}
	}
	results := o.executor.Execute(ctx, defs, calls)

	for _, r := range results {
		resp.ToolCalls = append(resp.ToolCalls, r.Log)
	}

	followUp := append(history, first)
	for _, r := range results {
		followUp = append(followUp, schema.ToolMessage(r.Output, r.CallID))
	}

	// 第二次调用不绑定工具，模型只能给出最终回答
	final, err := o.chatModel.Generate(ctx, followUp)
	if err != nil {
		log.Printf("Warning: final model call failed after tool round: %v", err)
		resp.Error = fmt.Sprintf("model provider request failed: %v", err)
		resp.AssistantMessage = fallbackMessage(err)
		return resp
	}

	resp.AssistantMessage = &model.ChatMessage{Role: model.RoleAssistant, Content: final.Content}
	return resp
}

// fallbackMessage 供应商调用失败时的兜底回复，附带错误原文
func fallbackMessage(err error) *model.ChatMessage {
	return &model.ChatMessage{
		Role:    model.RoleAssistant,
		Content: fmt.Sprintf("I could not get a response from the model provider (%v). Please try again.", err),
	}
}

// toSchemaMessage 将请求消息转换为 eino 消息
func toSchemaMessage(m model.ChatMessage) *schema.Message {
	switch m.Role {
	case model.RoleSystem:
		return schema.SystemMessage(m.Content)
	case model.RoleAssistant:
		return &schema.Message{Role: schema.Assistant, Content: m.Content}
	case model.RoleTool:
		return &schema.Message{Role: schema.Tool, Content: m.Content}
	default:
		return schema.UserMessage(m.Content)
	}
}
