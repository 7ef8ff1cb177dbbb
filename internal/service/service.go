// Package service 装配全部业务服务与 eino 组件
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/dashscope"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/embedding"
	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/agent-chat/internal/config"
	"github.com/ashwinyue/agent-chat/internal/repository"
	"github.com/ashwinyue/agent-chat/internal/service/file"
	"github.com/ashwinyue/agent-chat/internal/service/ingest"
	"github.com/ashwinyue/agent-chat/internal/service/orchestrator"
	"github.com/ashwinyue/agent-chat/internal/service/prompt"
	"github.com/ashwinyue/agent-chat/internal/service/retrieval"
	"github.com/ashwinyue/agent-chat/internal/service/session"
	"github.com/ashwinyue/agent-chat/internal/service/tools"
	"github.com/ashwinyue/agent-chat/internal/service/vectorstore"
)

// Services 服务集合
type Services struct {
	Config     *config.Config
	Repos      *repository.Repositories
	SessionMgr *session.Manager

	Orchestrator *orchestrator.Orchestrator
	Ingest       *ingest.Service
	Storage      file.Storage

	// Eino 组件（直接使用 eino 类型，无封装）
	ChatModel   ecomodel.ToolCallingChatModel
	Embedder    embedding.Embedder
	VectorStore *vectorstore.Store
}

// NewServices 创建所有服务
//
// AI 凭证缺失不阻止启动：对应组件置 nil，相关请求在运行时返回业务错误。
func NewServices(repos *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	chatModel, err := newToolCallingChatModel(ctx, cfg)
	if err != nil {
		log.Printf("Warning: failed to create chat model: %v", err)
	}

	embedder := newEmbedder(ctx, cfg)

	var store *vectorstore.Store
	if embedder != nil {
		store, err = vectorstore.NewStore(ctx, cfg, embedder)
		if err != nil {
			log.Printf("Warning: failed to create vector store: %v", err)
			store = nil
		}
	}

	storage, err := file.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to init file storage: %w", err)
	}

	sessionMgr := session.NewManager(repos.Session, repos.Document, redisClient)

	var planner orchestrator.ContextPlanner
	if store != nil {
		planner = retrieval.NewPlanner(repos.Document, store, embedder, &cfg.Retrieval)
	}

	registry := tools.NewRegistry()
	executor := tools.NewExecutor(
		time.Duration(cfg.Tools.TimeoutSeconds)*time.Second,
		cfg.Tools.PreviewBytes,
	)

	var vectors ingest.VectorUpserter
	if store != nil {
		vectors = store
	}

	return &Services{
		Config:     cfg,
		Repos:      repos,
		SessionMgr: sessionMgr,

		Orchestrator: orchestrator.New(chatModel, registry, executor, prompt.NewBuilder(), planner),
		Ingest:       ingest.NewService(repos.Document, vectors, sessionMgr, &cfg.Retrieval),
		Storage:      storage,

		ChatModel:   chatModel,
		Embedder:    embedder,
		VectorStore: store,
	}, nil
}

// newToolCallingChatModel 创建支持工具调用的 ChatModel
func newToolCallingChatModel(ctx context.Context, cfg *config.Config) (ecomodel.ToolCallingChatModel, error) {
	aiCfg := cfg.AI

	var apiKey, baseURL, modelName string

	switch aiCfg.Provider {
	case "openai", "":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
	case "alibaba", "qwen", "dashscope":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		modelName = aiCfg.OpenAI.Model
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}

	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	temperature := float32(0.7)

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       modelName,
		Temperature: &temperature,
	})
}

// newEmbedder 创建 Embedding 器
func newEmbedder(ctx context.Context, cfg *config.Config) embedding.Embedder {
	embCfg := cfg.AI.Embedding

	switch embCfg.Provider {
	case "alibaba", "qwen", "dashscope", "", "openai":
	default:
		log.Printf("Warning: unsupported embedding provider: %s", embCfg.Provider)
		return nil
	}

	if embCfg.APIKey == "" {
		log.Printf("Warning: embedding api_key is empty")
		return nil
	}

	model := embCfg.Model
	if model == "" {
		model = "text-embedding-v3"
	}

	embConfig := &dashscope.EmbeddingConfig{
		APIKey: embCfg.APIKey,
		Model:  model,
	}
	if embCfg.Timeout > 0 {
		embConfig.Timeout = time.Duration(embCfg.Timeout) * time.Second
	}
	if embCfg.Dimensions > 0 {
		embConfig.Dimensions = &embCfg.Dimensions
	}

	embedder, err := dashscope.NewEmbedder(ctx, embConfig)
	if err != nil {
		log.Printf("Warning: failed to create embedder: %v", err)
		return nil
	}

	return embedder
}
