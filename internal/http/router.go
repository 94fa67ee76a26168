package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/recipes-assistant-backend/internal/http/handlers"
	httpMW "github.com/yungbote/recipes-assistant-backend/internal/http/middleware"
	"github.com/yungbote/recipes-assistant-backend/internal/observability"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

const metricsPath = "/metrics"

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string
	// MaxUploadBytes bounds multipart memory; 0 keeps gin's default. The body
	// cap itself is IngestHandler.LimitUploads.
	MaxUploadBytes int64

	HealthHandler   *httpH.HealthHandler
	ChatHandler     *httpH.ChatHandler
	IngestHandler   *httpH.IngestHandler
	ResourceHandler *httpH.ResourceHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	if cfg.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = cfg.MaxUploadBytes
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "recipes-assistant"
	}
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log, "/healthcheck", "/metrics"))
	r.Use(httpMW.Metrics(cfg.Metrics, metricsPath))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET(metricsPath, cfg.HealthHandler.Metrics)
	}

	api := r.Group("/api")
	{
		// Chat (SSE)
		if cfg.ChatHandler != nil {
			api.POST("/chat", cfg.ChatHandler.Chat)
		}

		// Ingestion
		if cfg.IngestHandler != nil {
			api.POST("/upload-chunks", cfg.IngestHandler.UploadChunks)
			api.POST("/upload", cfg.IngestHandler.Upload)
		}

		// Resources
		if cfg.ResourceHandler != nil {
			api.GET("/resources", cfg.ResourceHandler.List)
			api.GET("/resources/search", cfg.ResourceHandler.Search)
			api.DELETE("/resources/:id", cfg.ResourceHandler.Delete)
		}
	}

	return r
}
