package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var reprocessBatch bool

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Convert every stored file again",
	Long: `Lists the stored recipe files and runs each through the configured
converter. With --batch the uploader service walks its own volume instead.
Every run adds new resources; nothing is deduplicated.`,
	Args: cobra.NoArgs,
	RunE: runReprocess,
}

func init() {
	reprocessCmd.Flags().BoolVar(&reprocessBatch, "batch", false, "ask the uploader service to process its whole directory")
	rootCmd.AddCommand(reprocessCmd)
}

func runReprocess(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
		out := cmd.OutOrStdout()
		if reprocessBatch {
			if rt.Uploader == nil {
				return errors.New("--batch needs CONVERTER_MODE=uploader")
			}
			summaries, err := rt.Uploader.ProcessAll(ctx)
			if err != nil {
				return err
			}
			for _, s := range summaries {
				if s.Error != "" {
					fmt.Fprintf(out, "%s: error: %s\n", s.File, s.Error)
					continue
				}
				fmt.Fprintf(out, "%s: %d chunks\n", s.File, s.Processed)
			}
			return nil
		}

		names, err := rt.Files.List(ctx)
		if err != nil {
			return err
		}
		var failed int
		for _, name := range names {
			res, err := rt.Converter.ProcessFile(ctx, name)
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s: error: %v\n", name, err)
				continue
			}
			fmt.Fprintf(out, "%s: %d chunks\n", name, res.Processed)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(names))
		}
		return nil
	})
}
