package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/agent-chat/internal/model"
)

// Definition 描述一个可执行工具及其参数约束
type Definition struct {
	Name   string
	Params map[string]*schema.ParameterInfo
	Tool   tool.InvokableTool
}

type entry struct {
	name    string
	enabled func(model.ChatSettings) bool
	params  func() map[string]*schema.ParameterInfo
	tool    tool.InvokableTool
}

// Registry 根据会话设置门控工具暴露
//
// think_mode 只影响系统提示词，不对应任何工具，因此不在注册表中。
type Registry struct {
	entries []entry
}

// NewRegistry 创建包含全部内置工具的注册表，顺序固定
func NewRegistry() *Registry {
	return &Registry{
		entries: []entry{
			{
				name:    ToolWebSearch,
				enabled: func(s model.ChatSettings) bool { return s.WebSearch },
				params:  webSearchParams,
				tool:    &WebSearchTool{},
			},
			{
				name:    ToolGenerateImage,
				enabled: func(s model.ChatSettings) bool { return s.ImageGeneration },
				params:  generateImageParams,
				tool:    &GenerateImageTool{},
			},
			{
				name:    ToolAnalyzeJSON,
				enabled: func(s model.ChatSettings) bool { return s.DataAnalysis },
				params:  analyzeJSONParams,
				tool:    &AnalyzeJSONTool{},
			},
		},
	}
}

// Definitions 返回按注册顺序排列的已启用工具定义
func (r *Registry) Definitions(settings model.ChatSettings) []Definition {
	var defs []Definition
	for _, e := range r.entries {
		if e.enabled(settings) {
			defs = append(defs, Definition{Name: e.name, Params: e.params(), Tool: e.tool})
		}
	}
	return defs
}

// EnabledNames 返回已启用工具名称，顺序与 Definitions 一致
func (r *Registry) EnabledNames(settings model.ChatSettings) []string {
	var names []string
	for _, e := range r.entries {
		if e.enabled(settings) {
			names = append(names, e.name)
		}
	}
	return names
}

// DisabledNames 返回被禁用工具名称
func (r *Registry) DisabledNames(settings model.ChatSettings) []string {
	var names []string
	for _, e := range r.entries {
		if !e.enabled(settings) {
			names = append(names, e.name)
		}
	}
	return names
}

// Infos 组装传给模型绑定的工具 schema 列表
func (r *Registry) Infos(ctx context.Context, settings model.ChatSettings) ([]*schema.ToolInfo, error) {
	defs := r.Definitions(settings)
	infos := make([]*schema.ToolInfo, 0, len(defs))
	for _, d := range defs {
		info, err := d.Tool.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get tool info for %s: %w", d.Name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
