package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/agent-chat/internal/model"
	"github.com/ashwinyue/agent-chat/internal/service/prompt"
	"github.com/ashwinyue/agent-chat/internal/service/tools"
)

// ========== Mock ChatModel ==========

type fakeChatModel struct {
	responses []*schema.Message
	errs      []error
	calls     int
	inputs    [][]*schema.Message
	bound     []*schema.ToolInfo
}

func (f *fakeChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...ecomodel.Option) (*schema.Message, error) {
	idx := f.calls
	f.calls++
	f.inputs = append(f.inputs, messages)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx >= len(f.responses) {
		return nil, errors.New("unexpected extra model call")
	}
	return f.responses[idx], nil
}

func (f *fakeChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...ecomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (f *fakeChatModel) WithTools(toolInfos []*schema.ToolInfo) (ecomodel.ToolCallingChatModel, error) {
	f.bound = toolInfos
	return f, nil
}

type fakePlanner struct {
	msg *schema.Message
}

func (f *fakePlanner) BuildContext(ctx context.Context, sessionID string, messages []model.ChatMessage) *schema.Message {
	return f.msg
}

func newTestOrchestrator(chatModel ecomodel.ToolCallingChatModel, planner ContextPlanner) *Orchestrator {
	return New(chatModel, tools.NewRegistry(), tools.NewExecutor(0, 0), prompt.NewBuilder(), planner)
}

func assistantText(content string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, Content: content}
}

func toolCallResponse(calls ...schema.ToolCall) *schema.Message {
	return &schema.Message{Role: schema.Assistant, ToolCalls: calls}
}

func webSearchCall(id string) schema.ToolCall {
	return schema.ToolCall{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: tools.ToolWebSearch, Arguments: `{"query":"golang"}`},
	}
}

// ========== 编排器测试 ==========

func TestHandleTurn_NoToolsEnabled(t *testing.T) {
	cm := &fakeChatModel{responses: []*schema.Message{assistantText("hello there")}}
	o := newTestOrchestrator(cm, nil)

	resp := o.HandleTurn(context.Background(), "s1",
		[]model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
		model.ChatSettings{})

	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if resp.AssistantMessage == nil || resp.AssistantMessage.Content != "hello there" {
		t.Errorf("AssistantMessage = %+v", resp.AssistantMessage)
	}
	if cm.calls != 1 {
		t.Errorf("model calls = %d, want 1", cm.calls)
	}
	if cm.bound != nil {
		t.Error("no tools should be bound when all capabilities are off")
	}
	if len(resp.ToolCalls) != 0 {
		t.Errorf("ToolCalls = %v, want empty", resp.ToolCalls)
	}
}

func TestHandleTurn_SingleToolRound(t *testing.T) {
	cm := &fakeChatModel{responses: []*schema.Message{
		toolCallResponse(webSearchCall("call_1")),
		assistantText("based on the search, here is the answer"),
	}}
	o := newTestOrchestrator(cm, nil)

	resp := o.HandleTurn(context.Background(), "s1",
		[]model.ChatMessage{{Role: model.RoleUser, Content: "search for golang"}},
		model.ChatSettings{WebSearch: true})

	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if cm.calls != 2 {
		t.Fatalf("model calls = %d, want exactly 2", cm.calls)
	}
	if len(cm.bound) != 1 || cm.bound[0].Name != tools.ToolWebSearch {
		t.Errorf("bound tools = %v", cm.bound)
	}
	if resp.AssistantMessage == nil || !strings.Contains(resp.AssistantMessage.Content, "answer") {
		t.Errorf("AssistantMessage = %+v", resp.AssistantMessage)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %v, want 1 entry", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Name != tools.ToolWebSearch || resp.ToolCalls[0].Error != "" {
		t.Errorf("ToolCalls[0] = %+v", resp.ToolCalls[0])
	}

	// 第二次调用必须携带首次回复与工具结果消息
	second := cm.inputs[1]
	var sawAssistant, sawTool bool
	for _, m := range second {
		if m.Role == schema.Assistant && len(m.ToolCalls) > 0 {
			sawAssistant = true
		}
		if m.Role == schema.Tool {
			sawTool = true
			if m.ToolCallID != "call_1" {
				t.Errorf("tool message ToolCallID = %s", m.ToolCallID)
			}
		}
	}
	if !sawAssistant || !sawTool {
		t.Error("second call missing assistant tool-call message or tool result message")
	}
}

func TestHandleTurn_NoThirdCallEvenIfModelAsksAgain(t *testing.T) {
	// 第二次回复仍然带工具调用，编排器必须取其文本并停止
	cm := &fakeChatModel{responses: []*schema.Message{
		toolCallResponse(webSearchCall("call_1")),
		{Role: schema.Assistant, Content: "final text", ToolCalls: []schema.ToolCall{webSearchCall("call_2")}},
	}}
	o := newTestOrchestrator(cm, nil)

	resp := o.HandleTurn(context.Background(), "s1",
		[]model.ChatMessage{{Role: model.RoleUser, Content: "search"}},
		model.ChatSettings{WebSearch: true})

	if cm.calls != 2 {
		t.Fatalf("model calls = %d, want exactly 2", cm.calls)
	}
	if resp.AssistantMessage == nil || resp.AssistantMessage.Content != "final text" {
		t.Errorf("AssistantMessage = %+v", resp.AssistantMessage)
	}
	if len(resp.ToolCalls) != 1 {
		t.Errorf("only the first round may execute tools, got %d logs", len(resp.ToolCalls))
	}
}

func TestHandleTurn_NilModel(t *testing.T) {
	o := newTestOrchestrator(nil, nil)

	resp := o.HandleTurn(context.Background(), "s1",
		[]model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
		model.ChatSettings{})

	if resp.Error == "" {
		t.Error("expected configuration error")
	}
	if resp.AssistantMessage != nil {
		t.Errorf("AssistantMessage = %+v, want nil", resp.AssistantMessage)
	}
	if resp.SessionID != "s1" {
		t.Errorf("SessionID = %s", resp.SessionID)
	}
}

func TestHandleTurn_FirstCallFails(t *testing.T) {
	cm := &fakeChatModel{errs: []error{errors.New("rate limited")}}
	o := newTestOrchestrator(cm, nil)

	resp := o.HandleTurn(context.Background(), "s1",
		[]model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
		model.ChatSettings{})

	if !strings.Contains(resp.Error, "rate limited") {
		t.Errorf("Error = %s", resp.Error)
	}
	// 供应商失败返回嵌入错误原文的兜底回复，对话仍可继续
	if resp.AssistantMessage == nil || !strings.Contains(resp.AssistantMessage.Content, "rate limited") {
		t.Errorf("AssistantMessage = %+v, want fallback embedding the error", resp.AssistantMessage)
	}
}

func TestHandleTurn_SecondCallFailsKeepsToolLogs(t *testing.T) {
	cm := &fakeChatModel{
		responses: []*schema.Message{toolCallResponse(webSearchCall("call_1")), nil},
		errs:      []error{nil, errors.New("provider down")},
	}
	o := newTestOrchestrator(cm, nil)

	resp := o.HandleTurn(context.Background(), "s1",
		[]model.ChatMessage{{Role: model.RoleUser, Content: "search"}},
		model.ChatSettings{WebSearch: true})

	if !strings.Contains(resp.Error, "provider down") {
		t.Errorf("Error = %s", resp.Error)
	}
	if resp.AssistantMessage == nil || resp.AssistantMessage.Content == "" {
		t.Error("expected fallback assistant message")
	}
	if len(resp.ToolCalls) != 1 {
		t.Errorf("tool logs must survive the provider failure, got %d", len(resp.ToolCalls))
	}
}

func TestHandleTurn_MixedToolOutcomes(t *testing.T) {
	cm := &fakeChatModel{responses: []*schema.Message{
		toolCallResponse(
			webSearchCall("call_1"),
			schema.ToolCall{
				ID:       "call_2",
				Type:     "function",
				Function: schema.FunctionCall{Name: "not_a_tool", Arguments: `{}`},
			},
		),
		assistantText("done"),
	}}
	o := newTestOrchestrator(cm, nil)

	resp := o.HandleTurn(context.Background(), "s1",
		[]model.ChatMessage{{Role: model.RoleUser, Content: "search"}},
		model.ChatSettings{WebSearch: true})

	if len(resp.ToolCalls) != 2 {
		t.Fatalf("ToolCalls = %d, want 2", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Error != "" {
		t.Errorf("first call should succeed: %s", resp.ToolCalls[0].Error)
	}
	if resp.ToolCalls[1].Error == "" {
		t.Error("second call should fail")
	}
}

func TestHandleTurn_InjectsRetrievalContext(t *testing.T) {
	ragMsg := &schema.Message{Role: schema.System, Content: "RAG_CONTEXT: excerpt"}
	cm := &fakeChatModel{responses: []*schema.Message{assistantText("grounded answer")}}
	o := newTestOrchestrator(cm, &fakePlanner{msg: ragMsg})

	resp := o.HandleTurn(context.Background(), "s1",
		[]model.ChatMessage{{Role: model.RoleUser, Content: "about the file"}},
		model.ChatSettings{})

	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	first := cm.inputs[0]
	if len(first) < 3 {
		t.Fatalf("expected system + context + user messages, got %d", len(first))
	}
	if first[1].Content != "RAG_CONTEXT: excerpt" {
		t.Errorf("context message = %q", first[1].Content)
	}
	// 检索上下文排在系统提示词之后、会话历史之前
	if first[0].Role != schema.System || !strings.Contains(first[0].Content, "Enabled tools") && !strings.Contains(first[0].Content, "No tools") {
		t.Errorf("first message should be the system prompt, got %q", first[0].Content)
	}
}

func TestHandleTurn_ThinkModeChangesPromptOnly(t *testing.T) {
	cm := &fakeChatModel{responses: []*schema.Message{assistantText("thought through")}}
	o := newTestOrchestrator(cm, nil)

	resp := o.HandleTurn(context.Background(), "s1",
		[]model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
		model.ChatSettings{ThinkMode: true})

	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if cm.bound != nil {
		t.Error("think mode must not bind tools")
	}
	sys := cm.inputs[0][0].Content
	if !strings.Contains(strings.ToLower(sys), "step") {
		t.Errorf("think mode should add a reasoning directive, prompt = %q", sys)
	}
}
