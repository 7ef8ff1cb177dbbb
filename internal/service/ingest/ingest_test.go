package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/agent-chat/internal/config"
	"github.com/ashwinyue/agent-chat/internal/model"
)

// ========== 入库服务测试 ==========

type mockDocStore struct {
	saved   []*model.Document
	chunks  []*model.DocumentChunk
	saveErr error
}

func (m *mockDocStore) Save(doc *model.Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *doc
	m.saved = append(m.saved, &copied)
	return nil
}

func (m *mockDocStore) UpsertChunks(chunks []*model.DocumentChunk) error {
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockDocStore) lastStatus() string {
	if len(m.saved) == 0 {
		return ""
	}
	return m.saved[len(m.saved)-1].Status
}

type mockVectors struct {
	upserted  []*schema.Document
	ensureErr error
	upsertErr error
}

func (m *mockVectors) EnsureIndex(ctx context.Context) error {
	return m.ensureErr
}

func (m *mockVectors) Upsert(ctx context.Context, docs []*schema.Document) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, docs...)
	return nil
}

type mockSessions struct {
	locked      int
	invalidated int
}

func (m *mockSessions) Lock(sessionID string) func() {
	m.locked++
	return func() {}
}

func (m *mockSessions) InvalidateFiles(ctx context.Context, sessionID string) {
	m.invalidated++
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestService(docs DocumentStore, vectors VectorUpserter, sessions SessionControl) *Service {
	return NewService(docs, vectors, sessions, &config.RetrievalConfig{
		ChunkSize:    100,
		ChunkOverlap: 20,
		MinChunkSize: 10,
	})
}

func TestIngestStored_Success(t *testing.T) {
	docs := &mockDocStore{}
	vectors := &mockVectors{}
	sessions := &mockSessions{}
	svc := newTestService(docs, vectors, sessions)

	content := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10)
	path := writeTempFile(t, "notes.txt", content)

	summary, err := svc.IngestStored(context.Background(), "sess1", []StoredUpload{
		{FileName: "notes.txt", Path: path, ContentType: "text/plain", Size: int64(len(content))},
	})
	if err != nil {
		t.Fatalf("IngestStored() error = %v", err)
	}

	if summary.DocumentsLoaded != 1 {
		t.Errorf("DocumentsLoaded = %d", summary.DocumentsLoaded)
	}
	if summary.ChunksCreated == 0 || summary.Stored != summary.ChunksCreated {
		t.Errorf("summary = %+v", summary)
	}
	if docs.lastStatus() != model.DocumentStatusCompleted {
		t.Errorf("final status = %s", docs.lastStatus())
	}
	if len(vectors.upserted) != summary.ChunksCreated {
		t.Errorf("vector upserts = %d, want %d", len(vectors.upserted), summary.ChunksCreated)
	}
	if sessions.locked != 1 || sessions.invalidated != 1 {
		t.Errorf("lock=%d invalidate=%d", sessions.locked, sessions.invalidated)
	}

	// 分块 ID 可由会话、文档、序号重算
	docID := DocumentID("sess1", "notes.txt")
	for i, c := range docs.chunks {
		want := fmt.Sprintf("sess1:%s:%d", docID, i)
		if c.ID != want {
			t.Errorf("chunks[%d].ID = %s, want %s", i, c.ID, want)
		}
		if c.ChunkIndex != i {
			t.Errorf("chunks[%d].ChunkIndex = %d", i, c.ChunkIndex)
		}
	}
}

func TestIngestStored_UnsupportedTypeContinues(t *testing.T) {
	docs := &mockDocStore{}
	vectors := &mockVectors{}
	svc := newTestService(docs, vectors, &mockSessions{})

	good := writeTempFile(t, "good.txt", "plenty of readable text content goes here for chunking")
	bad := writeTempFile(t, "image.png", "binarydata")

	summary, err := svc.IngestStored(context.Background(), "sess1", []StoredUpload{
		{FileName: "image.png", Path: bad},
		{FileName: "good.txt", Path: good},
	})

	if err == nil {
		t.Fatal("expected aggregated error for unsupported file")
	}
	if !strings.Contains(err.Error(), "image.png") {
		t.Errorf("error should name the failing file: %v", err)
	}
	if summary.Stored == 0 {
		t.Error("good file should still be stored")
	}

	var badDoc *model.Document
	for _, d := range docs.saved {
		if d.FileName == "image.png" {
			badDoc = d
		}
	}
	if badDoc == nil || badDoc.Status != model.DocumentStatusFailed {
		t.Errorf("failing document should be marked failed: %+v", badDoc)
	}
	if badDoc != nil && badDoc.ErrorMsg == "" {
		t.Error("failed document should carry an error message")
	}
}

func TestIngestStored_VectorFailureMarksFailed(t *testing.T) {
	docs := &mockDocStore{}
	vectors := &mockVectors{upsertErr: errors.New("es unavailable")}
	svc := newTestService(docs, vectors, &mockSessions{})

	path := writeTempFile(t, "a.txt", "some content that parses and chunks correctly")

	_, err := svc.IngestStored(context.Background(), "sess1", []StoredUpload{
		{FileName: "a.txt", Path: path},
	})
	if err == nil || !strings.Contains(err.Error(), "es unavailable") {
		t.Fatalf("err = %v", err)
	}
	if docs.lastStatus() != model.DocumentStatusFailed {
		t.Errorf("status = %s, want failed", docs.lastStatus())
	}
	// 分块已写入数据库，只有向量写入失败
	if len(docs.chunks) == 0 {
		t.Error("chunks should be persisted before vector store failure")
	}
}

func TestIngestStored_EmptyFileFails(t *testing.T) {
	docs := &mockDocStore{}
	svc := newTestService(docs, &mockVectors{}, &mockSessions{})

	path := writeTempFile(t, "empty.txt", "")
	_, err := svc.IngestStored(context.Background(), "sess1", []StoredUpload{
		{FileName: "empty.txt", Path: path},
	})
	if err == nil {
		t.Error("empty file should report an ingest error")
	}
	if docs.lastStatus() != model.DocumentStatusFailed {
		t.Errorf("status = %s, want failed", docs.lastStatus())
	}
}

func TestDocumentID_Deterministic(t *testing.T) {
	a := DocumentID("sess1", "report.pdf")
	b := DocumentID("sess1", "report.pdf")
	if a != b {
		t.Error("DocumentID must be deterministic")
	}
	if DocumentID("sess2", "report.pdf") == a {
		t.Error("different sessions must yield different document IDs")
	}
	if DocumentID("sess1", "other.pdf") == a {
		t.Error("different file names must yield different document IDs")
	}
}

func TestReingestSameFileKeepsChunkIDs(t *testing.T) {
	docs := &mockDocStore{}
	svc := newTestService(docs, &mockVectors{}, &mockSessions{})

	content := strings.Repeat("Stable text for identical chunking. ", 8)
	path := writeTempFile(t, "a.txt", content)
	upload := []StoredUpload{{FileName: "a.txt", Path: path}}

	if _, err := svc.IngestStored(context.Background(), "sess1", upload); err != nil {
		t.Fatal(err)
	}
	firstIDs := make([]string, len(docs.chunks))
	for i, c := range docs.chunks {
		firstIDs[i] = c.ID
	}
	docs.chunks = nil

	if _, err := svc.IngestStored(context.Background(), "sess1", upload); err != nil {
		t.Fatal(err)
	}
	if len(docs.chunks) != len(firstIDs) {
		t.Fatalf("chunk count changed: %d vs %d", len(docs.chunks), len(firstIDs))
	}
	for i, c := range docs.chunks {
		if c.ID != firstIDs[i] {
			t.Errorf("chunk ID changed on re-ingest: %s vs %s", c.ID, firstIDs[i])
		}
	}
}
