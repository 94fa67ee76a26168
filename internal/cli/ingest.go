package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/recipes-assistant-backend/internal/services"
)

var (
	ingestFile   string
	ingestText   string
	ingestChunks string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Add content to the knowledge base",
	Long: `Ingests raw text (--text or --file), split on sentence boundaries, or a
JSON file holding a pre-chunked array of strings (--chunks).`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "file with raw text to ingest")
	ingestCmd.Flags().StringVarP(&ingestText, "text", "t", "", "raw text to ingest")
	ingestCmd.Flags().StringVar(&ingestChunks, "chunks", "", "JSON file holding an array of chunk strings")
	ingestCmd.MarkFlagsMutuallyExclusive("file", "text", "chunks")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	var (
		raw    string
		chunks []string
	)
	switch {
	case ingestText != "":
		raw = ingestText
	case ingestFile != "":
		b, err := os.ReadFile(ingestFile)
		if err != nil {
			return err
		}
		raw = string(b)
	case ingestChunks != "":
		b, err := os.ReadFile(ingestChunks)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, &chunks); err != nil {
			return fmt.Errorf("%s: want a JSON array of strings: %w", ingestChunks, err)
		}
	default:
		return errors.New("one of --file, --text or --chunks is required")
	}

	return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
		var (
			msg string
			res services.IngestResult
			err error
		)
		if chunks != nil {
			msg, res, err = rt.Ingestion.IngestChunks(ctx, chunks)
		} else {
			msg, res, err = rt.Ingestion.IngestRaw(ctx, raw)
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "resource %s (%d chunks)\n", res.ResourceID, res.Chunks)
		return nil
	})
}
