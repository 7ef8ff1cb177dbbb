package model

import "time"

// 文档入库状态
const (
	DocumentStatusPending   = "pending"
	DocumentStatusCompleted = "completed"
	DocumentStatusFailed    = "failed"
)

// ChatSession 聊天会话
// 首次上传或首次未携带 session_id 的聊天请求时创建，ID 分配后不可变
type ChatSession struct {
	ID        string     `gorm:"primaryKey;size:36"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	Documents []Document `gorm:"foreignKey:SessionID"`
}

// Document 会话内上传的文档
type Document struct {
	ID          string    `gorm:"primaryKey;size:36"`
	SessionID   string    `gorm:"index;size:36"`
	FileName    string    `gorm:"size:255"`
	FilePath    string    `gorm:"size:500"`
	FileSize    int64     `gorm:"default:0"`
	ContentType string    `gorm:"size:100"`
	Status      string    `gorm:"size:20;index;default:pending"` // pending, completed, failed
	ChunkCount  int       `gorm:"default:0"`
	ErrorMsg    string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// DocumentChunk 文档分块元数据
// ID 由 (session_id, document_id, chunk_index) 确定，保证 upsert 幂等
type DocumentChunk struct {
	ID         string    `gorm:"primaryKey;size:100"`
	SessionID  string    `gorm:"index;size:36"`
	DocumentID string    `gorm:"index;size:36"`
	ChunkIndex int       `gorm:"index"`
	Content    string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (Document) TableName() string {
	return "documents"
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// AllModels 自动迁移的模型列表
var AllModels = []interface{}{
	&ChatSession{},
	&Document{},
	&DocumentChunk{},
}
