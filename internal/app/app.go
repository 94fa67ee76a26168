package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recipes-assistant-backend/internal/data/db"
	httpapi "github.com/yungbote/recipes-assistant-backend/internal/http"
	"github.com/yungbote/recipes-assistant-backend/internal/observability"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/filestore"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Metrics  *observability.Metrics
	Repos    Repos
	Clients  Clients
	Services Services
	Files    filestore.FileStore
	Server   *httpapi.Server
	Router   *gin.Engine

	closers      []func() error
	shutdownOTel func(context.Context) error
	cancel       context.CancelFunc
}

func NewLogger(cfg Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenDatabase connects and migrates. It is all the database-only commands need.
func OpenDatabase(log *logger.Logger, cfg Config) (*db.Service, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	svc, err := db.NewService(log, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(svc.DB()); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return svc, nil
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  cfg.OTelServiceName,
		Environment:  cfg.OTelEnvironment,
		SampleRatio:  cfg.OTelSampleRatio,
		Endpoint:     cfg.OTelEndpoint,
		Headers:      observability.ParseHeaders(cfg.OTelHeaders),
		Insecure:     cfg.OTelInsecure,
		StdoutExport: cfg.OTelStdout,
	})
	metrics := observability.Init(log, cfg.MetricsEnabled)

	a := &App{Log: log, Cfg: cfg, Metrics: metrics, shutdownOTel: shutdownOTel}

	dbsvc, err := OpenDatabase(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.DB = dbsvc
	a.closers = append(a.closers, dbsvc.Close)

	a.Repos = wireRepos(dbsvc.DB(), log)

	a.Clients, err = wireClients(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Services = wireServices(dbsvc.DB(), log, cfg, a.Repos, a.Clients)

	files, closeFiles, err := resolveFileStore(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Files = files
	a.closers = append(a.closers, closeFiles)

	converter, up, closeConverter, err := resolveConverter(log, cfg, files, a.Services.Ingestion)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Services.Converter = converter
	a.Clients.Uploader = up
	a.closers = append(a.closers, closeConverter)

	handlers := wireHandlers(log, cfg, metrics, a.Services, files)
	a.Server = httpapi.NewServer(routerConfig(log, cfg, metrics, handlers))
	a.Router = a.Server.Engine
	return a, nil
}

// Start launches background collectors. Close stops them.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if a.Metrics != nil && a.DB != nil {
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB.DB(), a.Cfg.DBStatsInterval)
	}
}

// Run serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, a.Cfg.Address())
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.Log != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(context.Background()); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		a.shutdownOTel = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
