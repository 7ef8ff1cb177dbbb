// Package retrieval 决定何时检索上传文档并组装上下文
package retrieval

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/agent-chat/internal/config"
	"github.com/ashwinyue/agent-chat/internal/model"
	"github.com/ashwinyue/agent-chat/internal/service/vectorstore"
)

// ContextPrefix 检索上下文系统消息的固定前缀
const ContextPrefix = "RAG_CONTEXT:"

// DocumentLister 列出会话内的文档记录
type DocumentLister interface {
	ListBySessionID(sessionID string) ([]*model.Document, error)
}

// ChunkQuerier 在向量存储中检索分块
type ChunkQuerier interface {
	Query(ctx context.Context, queryVector []float64, sessionID string, documentIDs []string, topK int) ([]vectorstore.Hit, error)
}

// Planner 检索规划器
//
// 会话存在已完成入库的文档时每轮都检索；最新用户消息提到某个文件名时
// 把查询限定到该文档。没有文档时仅在消息含文件类关键词时才尝试检索
// （结果合法为空）。检索链路上的任何失败都静默降级为不注入上下文，
// 绝不阻断对话。
type Planner struct {
	docs     DocumentLister
	store    ChunkQuerier
	embedder embedding.Embedder
	topK     int
	keywords []string
}

// NewPlanner 创建检索规划器
func NewPlanner(docs DocumentLister, store ChunkQuerier, embedder embedding.Embedder, cfg *config.RetrievalConfig) *Planner {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	keywords := make([]string, 0, len(cfg.TriggerKeywords))
	for _, k := range cfg.TriggerKeywords {
		keywords = append(keywords, strings.ToLower(k))
	}
	return &Planner{
		docs:     docs,
		store:    store,
		embedder: embedder,
		topK:     topK,
		keywords: keywords,
	}
}

// BuildContext 为一轮对话构建检索上下文系统消息
//
// 未触发检索或检索失败时返回 nil。
func (p *Planner) BuildContext(ctx context.Context, sessionID string, messages []model.ChatMessage) *schema.Message {
	if sessionID == "" || p.embedder == nil {
		return nil
	}

	query := lastUserMessage(messages)
	if query == "" {
		return nil
	}

	docs, err := p.docs.ListBySessionID(sessionID)
	if err != nil {
		log.Printf("Warning: failed to list session documents: %v", err)
		return nil
	}

	var completed []*model.Document
	for _, d := range docs {
		if d.Status == model.DocumentStatusCompleted {
			completed = append(completed, d)
		}
	}
	// 无文档时仅关键词触发；有文档时每轮都检索
	if len(completed) == 0 && !p.keywordHit(query) {
		return nil
	}

	var docIDs []string
	if matched := matchFilename(query, completed); matched != nil {
		docIDs = []string{matched.ID}
	}

	vectors, err := p.embedder.EmbedStrings(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		log.Printf("Warning: failed to embed retrieval query: %v", err)
		return nil
	}

	hits, err := p.store.Query(ctx, vectors[0], sessionID, docIDs, p.topK)
	if err != nil {
		log.Printf("Warning: chunk retrieval failed: %v", err)
		return nil
	}
	if len(hits) == 0 {
		return nil
	}

	return &schema.Message{
		Role:    schema.System,
		Content: formatContext(hits),
	}
}

// keywordHit 判断用户消息是否含文件类关键词（按词匹配，丢弃标点）
func (p *Planner) keywordHit(query string) bool {
	words := tokenize(strings.ToLower(query))
	for _, k := range p.keywords {
		if words[k] {
			return true
		}
	}
	return false
}

// matchFilename 返回消息中提到的第一个文档
//
// 不区分大小写的包含匹配，文件名或去掉扩展名的主干（至少 3 字符）均可。
func matchFilename(query string, docs []*model.Document) *model.Document {
	lower := strings.ToLower(query)
	for _, d := range docs {
		name := strings.ToLower(d.FileName)
		if name != "" && strings.Contains(lower, name) {
			return d
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if len(stem) >= 3 && strings.Contains(lower, stem) {
			return d
		}
	}
	return nil
}

// lastUserMessage 返回最后一条用户消息的内容
func lastUserMessage(messages []model.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

// tokenize 将文本拆为小写词集合，丢弃标点
func tokenize(lower string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		words[w] = true
	}
	return words
}

// formatContext 将命中分块拼装为单条上下文消息
//
// 每段摘录用 [文件名#分块序号] 标注来源。
func formatContext(hits []vectorstore.Hit) string {
	var sb strings.Builder
	sb.WriteString(ContextPrefix)
	sb.WriteString(" The following excerpts come from files the user uploaded in this conversation. ")
	sb.WriteString("Ground your answer in them when relevant.\n")
	for _, h := range hits {
		sb.WriteString(fmt.Sprintf("\n[%s#%d]\n%s\n", h.FileName, h.ChunkIndex, h.Content))
	}
	return sb.String()
}
