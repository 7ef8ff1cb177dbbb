// Package tools 提供能力开关门控的工具注册与执行
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// 工具名称
const (
	ToolWebSearch     = "web_search"
	ToolGenerateImage = "generate_image"
	ToolAnalyzeJSON   = "analyze_json"
)

// ========== web_search ==========

// WebSearchTool 网络搜索工具（桩实现，不发起真实搜索）
type WebSearchTool struct{}

func webSearchParams() map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"query": {
			Type:     schema.String,
			Desc:     "The search query",
			Required: true,
		},
	}
}

func (t *WebSearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        ToolWebSearch,
		Desc:        "Search the web for up-to-date information and return a list of results.",
		ParamsOneOf: schema.NewParamsOneOfByParams(webSearchParams()),
	}, nil
}

func (t *WebSearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	out, _ := json.Marshal(map[string]any{
		"query":   input.Query,
		"results": []any{},
		"note":    "web_search is a stub integration; no live search was performed",
	})
	return string(out), nil
}

// ========== generate_image ==========

// GenerateImageTool 图片生成工具（桩实现）
type GenerateImageTool struct{}

func generateImageParams() map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"prompt": {
			Type:     schema.String,
			Desc:     "Text description of the image to generate",
			Required: true,
		},
	}
}

func (t *GenerateImageTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        ToolGenerateImage,
		Desc:        "Generate an image from a text prompt.",
		ParamsOneOf: schema.NewParamsOneOfByParams(generateImageParams()),
	}, nil
}

func (t *GenerateImageTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input struct {
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	out, _ := json.Marshal(map[string]any{
		"prompt": input.Prompt,
		"images": []any{},
		"note":   "generate_image is a stub integration; no image was produced",
	})
	return string(out), nil
}

// ========== analyze_json ==========

// AnalyzeJSONTool 数据分析工具（桩实现，返回负载摘要）
type AnalyzeJSONTool struct{}

func analyzeJSONParams() map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"data": {
			Type:     schema.Object,
			Desc:     "Arbitrary JSON payload to analyze",
			Required: true,
		},
	}
}

func (t *AnalyzeJSONTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        ToolAnalyzeJSON,
		Desc:        "Analyze a JSON payload and return a summary of its structure.",
		ParamsOneOf: schema.NewParamsOneOfByParams(analyzeJSONParams()),
	}, nil
}

func (t *AnalyzeJSONTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	summary := map[string]any{
		"type": jsonKind(input.Data),
		"note": "analyze_json is a stub integration; summary only",
	}

	var value any
	if err := json.Unmarshal(input.Data, &value); err == nil {
		switch v := value.(type) {
		case map[string]any:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			summary["keys"] = len(keys)
		case []any:
			summary["length"] = len(v)
		case string:
			summary["length"] = len(v)
		}
	}

	summary["preview"] = truncatePreview(string(input.Data), 5000)

	out, _ := json.Marshal(summary)
	return string(out), nil
}

// jsonKind 判断 JSON 值类型
func jsonKind(raw json.RawMessage) string {
	for _, b := range raw {
		switch {
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			continue
		case b == '{':
			return "object"
		case b == '[':
			return "array"
		case b == '"':
			return "string"
		case b == 't' || b == 'f':
			return "boolean"
		case b == 'n':
			return "null"
		default:
			return "number"
		}
	}
	return "null"
}
