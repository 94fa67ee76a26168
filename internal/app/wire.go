package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/recipes-assistant-backend/internal/clients/uploader"
	"github.com/yungbote/recipes-assistant-backend/internal/data/repos"
	httpapi "github.com/yungbote/recipes-assistant-backend/internal/http"
	httpH "github.com/yungbote/recipes-assistant-backend/internal/http/handlers"
	"github.com/yungbote/recipes-assistant-backend/internal/ingestion/embedder"
	"github.com/yungbote/recipes-assistant-backend/internal/observability"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/filestore"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/openai"
	"github.com/yungbote/recipes-assistant-backend/internal/services"
)

type Repos struct {
	Resource repos.ResourceRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Resource: repos.NewResourceRepo(db, log),
	}
}

type Clients struct {
	OpenAI   openai.Client
	Chat     openai.ChatModel
	Uploader uploader.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	ocfg := openai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		EmbedModel: cfg.EmbedModel,
		ChatModel:  cfg.ChatModel,
		Timeout:    cfg.OpenAITimeout,
		MaxRetries: cfg.OpenAIMaxRetries,
	}
	oc, err := openai.NewClient(log, ocfg)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	chat, err := openai.NewChatModel(log, ocfg)
	if err != nil {
		return Clients{}, fmt.Errorf("init chat model: %w", err)
	}
	return Clients{OpenAI: oc, Chat: chat}, nil
}

type Services struct {
	Embedder  embedder.Embedder
	Ingestion services.IngestionService
	Retriever services.Retriever
	Chat      services.ChatService
	Resources services.ResourceService
	Converter services.Converter
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) Services {
	log.Info("Wiring services...")
	emb := embedder.New(log, clients.OpenAI, embedder.Config{
		Dimensions:  cfg.EmbedDimensions,
		BatchSize:   cfg.EmbedBatchSize,
		Concurrency: cfg.EmbedConcurrency,
		RatePerSec:  cfg.EmbedRatePerSec,
	})
	ingestion := services.NewIngestionService(db, log, reposet.Resource, emb)
	retriever := services.NewRetriever(log, reposet.Resource, emb)
	return Services{
		Embedder:  emb,
		Ingestion: ingestion,
		Retriever: retriever,
		Chat: services.NewChatService(log, clients.Chat, ingestion, retriever, services.ChatConfig{
			Model:       cfg.ChatModel,
			MaxSteps:    cfg.ChatMaxSteps,
			MaxDuration: cfg.ChatMaxDuration,
			ToolTimeout: cfg.ToolTimeout,
		}),
		Resources: services.NewResourceService(log, reposet.Resource),
	}
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Chat     *httpH.ChatHandler
	Ingest   *httpH.IngestHandler
	Resource *httpH.ResourceHandler
}

func wireHandlers(log *logger.Logger, cfg Config, metrics *observability.Metrics, serviceset Services, files filestore.FileStore) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(metrics),
		Chat:     httpH.NewChatHandler(log, serviceset.Chat),
		Ingest:   httpH.NewIngestHandler(log, serviceset.Ingestion, files, serviceset.Converter).LimitUploads(cfg.MaxUploadBytes),
		Resource: httpH.NewResourceHandler(serviceset.Resources, serviceset.Retriever),
	}
}

func routerConfig(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers) httpapi.RouterConfig {
	return httpapi.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     cfg.OTelServiceName,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		HealthHandler:   handlers.Health,
		ChatHandler:     handlers.Chat,
		IngestHandler:   handlers.Ingest,
		ResourceHandler: handlers.Resource,
	}
}
