package tools

import (
	"context"
	"testing"

	"github.com/ashwinyue/agent-chat/internal/model"
)

// ========== 注册表门控测试 ==========

func TestRegistryGating(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name     string
		settings model.ChatSettings
		want     []string
	}{
		{
			name:     "all disabled",
			settings: model.ChatSettings{},
			want:     nil,
		},
		{
			name:     "only web search",
			settings: model.ChatSettings{WebSearch: true},
			want:     []string{ToolWebSearch},
		},
		{
			name:     "only image generation",
			settings: model.ChatSettings{ImageGeneration: true},
			want:     []string{ToolGenerateImage},
		},
		{
			name:     "only data analysis",
			settings: model.ChatSettings{DataAnalysis: true},
			want:     []string{ToolAnalyzeJSON},
		},
		{
			name: "all enabled keeps registration order",
			settings: model.ChatSettings{
				WebSearch:       true,
				ImageGeneration: true,
				DataAnalysis:    true,
			},
			want: []string{ToolWebSearch, ToolGenerateImage, ToolAnalyzeJSON},
		},
		{
			name:     "think mode does not expose any tool",
			settings: model.ChatSettings{ThinkMode: true},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reg.EnabledNames(tt.settings)
			if len(got) != len(tt.want) {
				t.Fatalf("EnabledNames() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("EnabledNames()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRegistryDisabledToolNeverExposed(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	// 遍历全部 16 种开关组合，关闭的工具绝不能出现在 schema 列表里
	for mask := 0; mask < 16; mask++ {
		settings := model.ChatSettings{
			WebSearch:       mask&1 != 0,
			ImageGeneration: mask&2 != 0,
			DataAnalysis:    mask&4 != 0,
			ThinkMode:       mask&8 != 0,
		}

		infos, err := reg.Infos(ctx, settings)
		if err != nil {
			t.Fatalf("Infos() error = %v", err)
		}

		exposed := make(map[string]bool)
		for _, info := range infos {
			exposed[info.Name] = true
		}

		if !settings.WebSearch && exposed[ToolWebSearch] {
			t.Errorf("mask %d: web_search exposed while disabled", mask)
		}
		if !settings.ImageGeneration && exposed[ToolGenerateImage] {
			t.Errorf("mask %d: generate_image exposed while disabled", mask)
		}
		if !settings.DataAnalysis && exposed[ToolAnalyzeJSON] {
			t.Errorf("mask %d: analyze_json exposed while disabled", mask)
		}
	}
}

func TestRegistryDisabledNames(t *testing.T) {
	reg := NewRegistry()

	settings := model.ChatSettings{WebSearch: true}
	disabled := reg.DisabledNames(settings)

	want := []string{ToolGenerateImage, ToolAnalyzeJSON}
	if len(disabled) != len(want) {
		t.Fatalf("DisabledNames() = %v, want %v", disabled, want)
	}
	for i := range disabled {
		if disabled[i] != want[i] {
			t.Errorf("DisabledNames()[%d] = %s, want %s", i, disabled[i], want[i])
		}
	}
}
