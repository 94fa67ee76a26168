package cli

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/recipes-assistant-backend/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  `Loads config, migrates the database and serves HTTP until interrupted.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	log, err := app.NewLogger(cfg)
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), log, cfg)
	if err != nil {
		log.Error("app init failed", "error", err)
		log.Sync()
		return err
	}
	defer a.Close()

	a.Start()
	return a.Run(cmd.Context())
}
