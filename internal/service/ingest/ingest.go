// Package ingest 实现上传文档的解析、分块、向量化与入库流程
package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/parser/docx"
	"github.com/cloudwego/eino-ext/components/document/parser/html"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoparser "github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/ashwinyue/agent-chat/internal/config"
	"github.com/ashwinyue/agent-chat/internal/model"
	"github.com/ashwinyue/agent-chat/internal/service/chunking"
	"github.com/ashwinyue/agent-chat/internal/service/vectorstore"
)

// DocumentStore 文档与分块的持久化接口
type DocumentStore interface {
	Save(doc *model.Document) error
	UpsertChunks(chunks []*model.DocumentChunk) error
}

// VectorUpserter 向量存储写入接口
type VectorUpserter interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, docs []*schema.Document) error
}

// SessionControl 入库所需的会话控制能力
type SessionControl interface {
	Lock(sessionID string) func()
	InvalidateFiles(ctx context.Context, sessionID string)
}

// StoredUpload 一个已落盘等待入库的文件
type StoredUpload struct {
	FileName    string
	Path        string
	ContentType string
	Size        int64
}

// Service 文档入库服务
type Service struct {
	docs     DocumentStore
	vectors  VectorUpserter
	sessions SessionControl
	engine   *chunking.Engine
}

// NewService 创建入库服务
func NewService(docs DocumentStore, vectors VectorUpserter, sessions SessionControl, cfg *config.RetrievalConfig) *Service {
	return &Service{
		docs:     docs,
		vectors:  vectors,
		sessions: sessions,
		engine:   chunking.NewEngine(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize),
	}
}

// DocumentID 由会话与文件名派生确定性文档 ID
//
// 同会话重复上传同名文件得到同一文档，分块与向量记录原地覆盖。
func DocumentID(sessionID, fileName string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sessionID+"/"+fileName)).String()
}

// IngestStored 将已落盘的文件批量入库
//
// 同会话的入库串行执行。单个文件失败会标记该文档为 failed 并继续
// 处理其余文件，所有失败汇总为一个错误返回。
func (s *Service) IngestStored(ctx context.Context, sessionID string, uploads []StoredUpload) (*model.IngestSummary, error) {
	unlock := s.sessions.Lock(sessionID)
	defer unlock()
	defer s.sessions.InvalidateFiles(ctx, sessionID)

	summary := &model.IngestSummary{}
	var failures []string

	for _, up := range uploads {
		loaded, chunks, err := s.ingestOne(ctx, sessionID, up)
		summary.DocumentsLoaded += loaded
		summary.ChunksCreated += chunks
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", up.FileName, err))
			continue
		}
		summary.Stored += chunks
	}

	if len(failures) > 0 {
		return summary, fmt.Errorf("%s", strings.Join(failures, "; "))
	}
	return summary, nil
}

// ingestOne 入库单个文件，返回解析出的文档数与分块数
func (s *Service) ingestOne(ctx context.Context, sessionID string, up StoredUpload) (int, int, error) {
	docID := DocumentID(sessionID, up.FileName)
	record := &model.Document{
		ID:          docID,
		SessionID:   sessionID,
		FileName:    up.FileName,
		FilePath:    up.Path,
		FileSize:    up.Size,
		ContentType: up.ContentType,
		Status:      model.DocumentStatusPending,
	}
	if err := s.docs.Save(record); err != nil {
		return 0, 0, fmt.Errorf("failed to record document: %w", err)
	}

	loaded, chunks, err := s.process(ctx, record)
	if err != nil {
		record.Status = model.DocumentStatusFailed
		record.ErrorMsg = err.Error()
		if saveErr := s.docs.Save(record); saveErr != nil {
			log.Printf("Warning: failed to mark document %s failed: %v", docID, saveErr)
		}
		return loaded, chunks, err
	}

	record.Status = model.DocumentStatusCompleted
	record.ChunkCount = chunks
	record.ErrorMsg = ""
	if err := s.docs.Save(record); err != nil {
		log.Printf("Warning: failed to mark document %s completed: %v", docID, err)
	}
	return loaded, chunks, nil
}

// process 执行解析、分块、持久化与向量写入
func (s *Service) process(ctx context.Context, record *model.Document) (int, int, error) {
	parsedDocs, err := s.parseFile(ctx, record.FilePath)
	if err != nil {
		return 0, 0, err
	}
	if len(parsedDocs) == 0 {
		return 0, 0, fmt.Errorf("no content parsed from document")
	}

	var parts []string
	for _, d := range parsedDocs {
		if t := strings.TrimSpace(d.Content); t != "" {
			parts = append(parts, t)
		}
	}
	text := strings.Join(parts, "\n\n")
	if text == "" {
		return len(parsedDocs), 0, fmt.Errorf("document is empty after parsing")
	}

	pieces := s.engine.Chunk(text)
	chunks := make([]*model.DocumentChunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = &model.DocumentChunk{
			ID:         vectorstore.ChunkID(record.SessionID, record.ID, i),
			SessionID:  record.SessionID,
			DocumentID: record.ID,
			ChunkIndex: i,
			Content:    content,
		}
	}

	if err := s.docs.UpsertChunks(chunks); err != nil {
		return len(parsedDocs), len(chunks), fmt.Errorf("failed to save chunks: %w", err)
	}

	if s.vectors == nil {
		return len(parsedDocs), len(chunks), fmt.Errorf("vector store is not configured")
	}
	if err := s.vectors.EnsureIndex(ctx); err != nil {
		return len(parsedDocs), len(chunks), fmt.Errorf("failed to ensure index: %w", err)
	}
	if err := s.vectors.Upsert(ctx, vectorstore.ChunksToDocuments(chunks, record.FileName)); err != nil {
		return len(parsedDocs), len(chunks), fmt.Errorf("failed to index chunks: %w", err)
	}

	return len(parsedDocs), len(chunks), nil
}

// parseFile 按扩展名选择解析器并解析文件
func (s *Service) parseFile(ctx context.Context, filePath string) ([]*schema.Document, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is empty")
	}

	fileParser, err := newParser(ctx, filePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	docs, err := fileParser.Parse(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("parser failed: %w", err)
	}
	return docs, nil
}

// newParser 创建解析器
func newParser(ctx context.Context, filePath string) (einoparser.Parser, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	case ".docx":
		return docx.NewDocxParser(ctx, &docx.Config{
			ToSections:     false,
			IncludeHeaders: true,
			IncludeTables:  true,
		})
	case ".html", ".htm":
		bodySelector := "body"
		return html.NewParser(ctx, &html.Config{
			Selector: &bodySelector,
		})
	case ".txt", ".md", ".csv", ".json":
		return &textParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filePath))
	}
}

// textParser 纯文本解析器
type textParser struct{}

func (p *textParser) Parse(_ context.Context, reader io.Reader, opts ...einoparser.Option) ([]*schema.Document, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read: %w", err)
	}
	if len(content) == 0 {
		return []*schema.Document{}, nil
	}
	return []*schema.Document{
		{Content: string(content), MetaData: make(map[string]any)},
	}, nil
}
