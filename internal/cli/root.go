package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/recipes-assistant-backend/internal/app"
	"github.com/yungbote/recipes-assistant-backend/internal/clients/uploader"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/filestore"
	"github.com/yungbote/recipes-assistant-backend/internal/services"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "recipes-assistant",
	Short: "Recipes assistant backend",
	Long: `Retrieval-augmented recipes assistant: ingests recipe text into a
vector store and answers questions over it through a streaming chat API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return os.Setenv("CONFIG_FILE", configFile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// runtime is what the data commands operate on.
type runtime struct {
	Ingestion services.IngestionService
	Retriever services.Retriever
	Resources services.ResourceService
	Converter services.Converter
	Files     filestore.FileStore
	// Uploader is nil unless the converter runs in uploader mode.
	Uploader uploader.Client
}

// openRuntime builds the full application. Tests replace it.
var openRuntime = func(ctx context.Context) (*runtime, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := app.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	rt := &runtime{
		Ingestion: a.Services.Ingestion,
		Retriever: a.Services.Retriever,
		Resources: a.Services.Resources,
		Converter: a.Services.Converter,
		Files:     a.Files,
		Uploader:  a.Clients.Uploader,
	}
	return rt, a.Close, nil
}

func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, closeFn, err := openRuntime(ctx)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer closeFn()
	return fn(ctx, rt)
}
