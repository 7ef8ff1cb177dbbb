package model

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage 聊天消息
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant tool"`
	Content string `json:"content"`
}

// ChatSettings 能力开关集合
// 每次请求由客户端完整提供，服务端不持久化
type ChatSettings struct {
	WebSearch       bool `json:"web_search"`
	ImageGeneration bool `json:"image_generation"`
	DataAnalysis    bool `json:"data_analysis"`
	ThinkMode       bool `json:"think_mode"`
}

// ChatRequest 聊天请求
type ChatRequest struct {
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages" binding:"required,min=1,dive"`
	Settings  ChatSettings  `json:"settings"`
}

// ToolCallLog 单次工具调用记录
// 每个被请求的工具调用产生一条记录，无论成功与否
type ToolCallLog struct {
	Name          string         `json:"name"`
	Input         map[string]any `json:"input,omitempty"`
	OutputPreview string         `json:"output_preview,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// ChatResponse 聊天响应
// 业务失败（如缺少凭证）返回 200，Error 非空、AssistantMessage 为 nil
type ChatResponse struct {
	SessionID        string        `json:"session_id"`
	AssistantMessage *ChatMessage  `json:"assistant_message"`
	ToolCalls        []ToolCallLog `json:"tool_calls"`
	Error            string        `json:"error,omitempty"`
}

// StoredFile 已落盘文件信息
type StoredFile struct {
	Filename    string `json:"filename"`
	Bytes       int64  `json:"bytes"`
	ContentType string `json:"content_type"`
}

// IngestSummary 文档入库统计
type IngestSummary struct {
	DocumentsLoaded int `json:"documents_loaded"`
	ChunksCreated   int `json:"chunks_created"`
	Stored          int `json:"stored"`
}

// UploadResponse 文件上传响应
// 落盘成功与入库成功相互独立，分别报告
type UploadResponse struct {
	SessionID   string         `json:"session_id"`
	Stored      []StoredFile   `json:"stored"`
	Ingest      *IngestSummary `json:"ingest"`
	IngestError string         `json:"ingest_error,omitempty"`
}

// FileInfo 会话文件条目
type FileInfo struct {
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
}

// ListFilesResponse 文件列表响应
type ListFilesResponse struct {
	SessionID string     `json:"session_id"`
	Files     []FileInfo `json:"files"`
}
