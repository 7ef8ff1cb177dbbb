package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
)

// Searcher ES 搜索接口，便于测试
type Searcher interface {
	// DoSearch 执行搜索请求并返回响应
	DoSearch(ctx context.Context, index string, queryJSON []byte) (*SearchResponse, error)
}

// SearchResponse Elasticsearch 搜索响应
type SearchResponse struct {
	IsError bool
	Body    io.ReadCloser
	String  string
}

// realSearcher 真实 ES 客户端的适配器
type realSearcher struct {
	doSearch func(ctx context.Context, index string, body io.Reader) (*SearchResponse, error)
}

// newRealSearcher 创建真实 ES 搜索器
func newRealSearcher(doSearch func(ctx context.Context, index string, body io.Reader) (*SearchResponse, error)) Searcher {
	return &realSearcher{doSearch: doSearch}
}

func (r *realSearcher) DoSearch(ctx context.Context, index string, queryJSON []byte) (*SearchResponse, error) {
	return r.doSearch(ctx, index, bytes.NewReader(queryJSON))
}

// mockSearcher 用于测试的 mock ES 搜索器
type mockSearcher struct {
	searchFunc func(ctx context.Context, index string, queryJSON []byte) (*SearchResponse, error)
}

// NewMockSearcher 创建 mock ES 搜索器
func NewMockSearcher(searchFunc func(ctx context.Context, index string, queryJSON []byte) (*SearchResponse, error)) Searcher {
	return &mockSearcher{searchFunc: searchFunc}
}

func (m *mockSearcher) DoSearch(ctx context.Context, index string, queryJSON []byte) (*SearchResponse, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, index, queryJSON)
	}
	// 默认返回空结果
	data := CreateEmptySearchResponse()
	return &SearchResponse{
		IsError: false,
		Body:    io.NopCloser(bytes.NewReader(data)),
		String:  string(data),
	}, nil
}

// CreateEmptySearchResponse 构造空搜索响应
func CreateEmptySearchResponse() []byte {
	resp := map[string]interface{}{
		"hits": map[string]interface{}{
			"hits": []interface{}{},
		},
	}
	data, _ := json.Marshal(resp)
	return data
}

// CreateSearchResponse 构造带有结果的搜索响应
func CreateSearchResponse(results []map[string]interface{}) []byte {
	hits := make([]map[string]interface{}, len(results))
	for i, r := range results {
		hits[i] = map[string]interface{}{
			"_id":     r["id"],
			"_score":  r["score"],
			"_source": r["source"],
		}
	}
	resp := map[string]interface{}{
		"hits": map[string]interface{}{
			"hits": hits,
		},
	}
	data, _ := json.Marshal(resp)
	return data
}

// CreateErrorResponse 构造 ES 错误响应
func CreateErrorResponse(message string) []byte {
	resp := map[string]interface{}{
		"error": map[string]interface{}{
			"reason": message,
		},
	}
	data, _ := json.Marshal(resp)
	return data
}
