package repository

import (
	"errors"

	"github.com/ashwinyue/agent-chat/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository 会话仓库
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建会话仓库
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create 创建会话
func (r *SessionRepository) Create(session *model.ChatSession) error {
	return r.db.Create(session).Error
}

// GetByID 获取会话
func (r *SessionRepository) GetByID(id string) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// EnsureExists 确保会话存在，不存在则创建
// 会话 ID 一经分配不可变更，重复创建为无操作
func (r *SessionRepository) EnsureExists(id string) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ChatSession{ID: id}).Error
}

// Exists 判断会话是否存在
func (r *SessionRepository) Exists(id string) (bool, error) {
	_, err := r.GetByID(id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}
