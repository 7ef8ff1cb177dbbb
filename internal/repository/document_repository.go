package repository

import (
	"github.com/ashwinyue/agent-chat/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRepository 文档仓库
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建文档仓库
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create 创建文档记录
func (r *DocumentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// Update 更新文档记录
func (r *DocumentRepository) Update(doc *model.Document) error {
	return r.db.Save(doc).Error
}

// Save 按主键写入文档记录，已存在则整体覆盖
// 文档 ID 由 (session_id, file_name) 派生，重复上传同名文件命中同一条记录
func (r *DocumentRepository) Save(doc *model.Document) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(doc).Error
}

// GetByID 获取文档
func (r *DocumentRepository) GetByID(id string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListBySessionID 列出会话的所有文档（按创建时间升序）
func (r *DocumentRepository) ListBySessionID(sessionID string) ([]*model.Document, error) {
	var docs []*model.Document
	if err := r.db.Where("session_id = ?", sessionID).
		Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// UpsertChunks 写入分块元数据
// 主键由 (session_id, document_id, chunk_index) 派生，重复入库为幂等更新
func (r *DocumentRepository) UpsertChunks(chunks []*model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(chunks).Error
}

// ListChunksByDocumentID 列出文档分块（按 chunk_index 升序）
func (r *DocumentRepository) ListChunksByDocumentID(docID string) ([]*model.DocumentChunk, error) {
	var chunks []*model.DocumentChunk
	if err := r.db.Where("document_id = ?", docID).
		Order("chunk_index ASC").Find(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}
