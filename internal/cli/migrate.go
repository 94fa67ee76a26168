package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/recipes-assistant-backend/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long:  `Runs the schema migrations, including the vector extension and the HNSW index on postgres.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	log, err := app.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, err := app.OpenDatabase(log, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "migrated (%s)\n", svc.Dialect())
	return nil
}
