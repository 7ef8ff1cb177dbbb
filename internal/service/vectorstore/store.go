// Package vectorstore 提供基于 Elasticsearch 的分块向量存储与检索
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/cloudwego/eino-ext/components/indexer/es8"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/ashwinyue/agent-chat/internal/config"
	"github.com/ashwinyue/agent-chat/internal/model"
)

// Hit 向量检索命中的一个分块
type Hit struct {
	ID         string
	SessionID  string
	DocumentID string
	FileName   string
	ChunkIndex int
	Content    string
	Score      float64
}

// Store 分块向量存储
//
// 写入走 eino 的 ES8 indexer（文档 ID 确定，重复写入覆盖而非追加），
// 查询走 knn 搜索并按相似度排序。
type Store struct {
	client   *elasticsearch.Client
	indexer  indexer.Indexer
	searcher Searcher
	index    string
	dims     int
}

// Ping 探测 Elasticsearch 可用性
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("elasticsearch client is not configured")
	}
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

// NewStore 创建向量存储，ES 配置缺失时返回错误
func NewStore(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) (*Store, error) {
	if cfg.Elastic.Host == "" {
		return nil, fmt.Errorf("elasticsearch host is not configured")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Elastic.Host},
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	indexName := cfg.Elastic.ChunkIndexName()

	esIndexer, err := es8.NewIndexer(ctx, &es8.IndexerConfig{
		Client:    client,
		Index:     indexName,
		BatchSize: 10,
		Embedding: embedder,
		DocumentToFields: func(ctx context.Context, doc *schema.Document) (map[string]es8.FieldValue, error) {
			return documentToFields(doc), nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES8 indexer: %w", err)
	}

	searcher := newRealSearcher(func(ctx context.Context, index string, body io.Reader) (*SearchResponse, error) {
		res, err := client.Search(
			client.Search.WithContext(ctx),
			client.Search.WithIndex(index),
			client.Search.WithBody(body),
		)
		if err != nil {
			return nil, err
		}
		return &SearchResponse{
			IsError: res.IsError(),
			Body:    res.Body,
			String:  res.String(),
		}, nil
	})

	return &Store{
		client:   client,
		indexer:  esIndexer,
		searcher: searcher,
		index:    indexName,
		dims:     cfg.AI.Embedding.Dimensions,
	}, nil
}

// EnsureIndex 确保分块索引存在，不存在则按向量映射创建
func (s *Store) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index})
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	dims := s.dims
	if dims == 0 {
		dims = 1536
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"content": map[string]interface{}{
					"type": "text",
				},
				"content_vector": map[string]interface{}{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
				"session_id": map[string]interface{}{
					"type": "keyword",
				},
				"document_id": map[string]interface{}{
					"type": "keyword",
				},
				"file_name": map[string]interface{}{
					"type": "keyword",
				},
				"chunk_index": map[string]interface{}{
					"type": "integer",
				},
			},
		},
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
	}

	mappingData, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	req := esapi.IndicesCreateRequest{
		Index: s.index,
		Body:  bytes.NewReader(mappingData),
	}

	createRes, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	log.Printf("Index %s created with %d dimensions", s.index, dims)
	return nil
}

// Upsert 向量化并写入分块，按文档 ID 覆盖已有记录
func (s *Store) Upsert(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := s.indexer.Store(ctx, docs); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	return nil
}

// Query 以查询向量执行 knn 检索，限定在指定会话与文档集合内
//
// 结果按相似度降序排列，得分相同时按 chunk_index 升序。
func (s *Store) Query(ctx context.Context, queryVector []float64, sessionID string, documentIDs []string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}

	filter := []map[string]interface{}{
		{"term": map[string]interface{}{"session_id": sessionID}},
	}
	if len(documentIDs) > 0 {
		filter = append(filter, map[string]interface{}{
			"terms": map[string]interface{}{"document_id": documentIDs},
		})
	}

	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "content_vector",
			"query_vector":   queryVector,
			"k":              topK,
			"num_candidates": topK * 10,
			"filter": map[string]interface{}{
				"bool": map[string]interface{}{
					"must": filter,
				},
			},
		},
		"size":    topK,
		"_source": []string{"content", "session_id", "document_id", "file_name", "chunk_index"},
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := s.searcher.DoSearch(ctx, s.index, queryJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer res.Body.Close()

	if res.IsError {
		return nil, fmt.Errorf("search failed: %s", res.String)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Content    string `json:"content"`
					SessionID  string `json:"session_id"`
					DocumentID string `json:"document_id"`
					FileName   string `json:"file_name"`
					ChunkIndex int    `json:"chunk_index"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{
			ID:         h.ID,
			SessionID:  h.Source.SessionID,
			DocumentID: h.Source.DocumentID,
			FileName:   h.Source.FileName,
			ChunkIndex: h.Source.ChunkIndex,
			Content:    h.Source.Content,
			Score:      h.Score,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkIndex < hits[j].ChunkIndex
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// ChunkID 生成分块的确定性存储 ID
//
// 同一会话中重复上传同名文件会得到相同的 ID 序列，写入即覆盖。
func ChunkID(sessionID, documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s:%s:%d", sessionID, documentID, chunkIndex)
}

// ChunksToDocuments 将数据库分块转换为待索引的 eino 文档
func ChunksToDocuments(chunks []*model.DocumentChunk, fileName string) []*schema.Document {
	docs := make([]*schema.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = &schema.Document{
			ID:      chunk.ID,
			Content: chunk.Content,
			MetaData: map[string]any{
				"session_id":  chunk.SessionID,
				"document_id": chunk.DocumentID,
				"file_name":   fileName,
				"chunk_index": chunk.ChunkIndex,
			},
		}
	}
	return docs
}

// documentToFields 将 eino 文档转换为 ES 字段
func documentToFields(doc *schema.Document) map[string]es8.FieldValue {
	fields := make(map[string]es8.FieldValue)

	// 内容字段（需要向量化）
	fields["content"] = es8.FieldValue{
		Value:    doc.Content,
		EmbedKey: "content_vector",
	}

	// 元数据字段（直接存储，不向量化）
	for k, v := range doc.MetaData {
		fields[k] = es8.FieldValue{Value: v}
	}

	return fields
}
