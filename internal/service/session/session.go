// Package session 管理会话生命周期与会话文件列表缓存
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/agent-chat/internal/model"
)

// filesCacheTTL 文件列表缓存有效期
const filesCacheTTL = 24 * time.Hour

// SessionStore 会话持久化接口
type SessionStore interface {
	EnsureExists(id string) error
	Exists(id string) (bool, error)
}

// DocumentLister 列出会话内的文档记录
type DocumentLister interface {
	ListBySessionID(sessionID string) ([]*model.Document, error)
}

// Manager 会话管理器
//
// 文件列表优先读 Redis 缓存，未命中回源 Postgres 并回填；
// Redis 不可用时直接走数据库，不影响正确性。
type Manager struct {
	sessions SessionStore
	docs     DocumentLister
	redis    *redis.Client

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager 创建会话管理器，redisClient 允许为 nil
func NewManager(sessions SessionStore, docs DocumentLister, redisClient *redis.Client) *Manager {
	return &Manager{
		sessions: sessions,
		docs:     docs,
		redis:    redisClient,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Resolve 解析会话 ID：空 ID 铸造新会话，非空 ID 确保会话存在
func (m *Manager) Resolve(sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	if err := m.sessions.EnsureExists(sessionID); err != nil {
		return "", fmt.Errorf("failed to ensure session: %w", err)
	}
	return sessionID, nil
}

// Exists 查询会话是否存在
func (m *Manager) Exists(sessionID string) (bool, error) {
	return m.sessions.Exists(sessionID)
}

// Lock 获取会话级互斥锁，返回解锁函数
//
// 同一会话的文档入库串行执行，避免并发覆盖同名文件时交错写入。
// 锁表为进程内状态且条目不回收：单实例部署，每会话一个 Mutex，
// 会话量级内存开销可忽略。
func (m *Manager) Lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// ListFiles 返回会话的文件列表
func (m *Manager) ListFiles(ctx context.Context, sessionID string) ([]model.FileInfo, error) {
	key := filesCacheKey(sessionID)

	if m.redis != nil {
		if data, err := m.redis.Get(ctx, key).Bytes(); err == nil {
			var files []model.FileInfo
			if json.Unmarshal(data, &files) == nil {
				return files, nil
			}
		}
	}

	docs, err := m.docs.ListBySessionID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session documents: %w", err)
	}

	files := make([]model.FileInfo, 0, len(docs))
	for _, d := range docs {
		files = append(files, model.FileInfo{Filename: d.FileName, Bytes: d.FileSize})
	}

	m.cacheFiles(ctx, key, files)
	return files, nil
}

// InvalidateFiles 让会话的文件列表缓存失效
func (m *Manager) InvalidateFiles(ctx context.Context, sessionID string) {
	if m.redis == nil {
		return
	}
	if err := m.redis.Del(ctx, filesCacheKey(sessionID)).Err(); err != nil {
		log.Printf("Warning: failed to invalidate files cache for %s: %v", sessionID, err)
	}
}

func (m *Manager) cacheFiles(ctx context.Context, key string, files []model.FileInfo) {
	if m.redis == nil {
		return
	}
	data, err := json.Marshal(files)
	if err != nil {
		return
	}
	if err := m.redis.Set(ctx, key, data, filesCacheTTL).Err(); err != nil {
		log.Printf("Warning: failed to cache files list: %v", err)
	}
}

func filesCacheKey(sessionID string) string {
	return "session:files:" + sessionID
}
