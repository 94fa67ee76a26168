package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Show the chunks retrieved for a question",
	Long: `Embeds the question and prints the stored chunks whose cosine similarity
exceeds the retrieval threshold, best first.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output matches as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
		matches, err := rt.Retriever.Retrieve(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if queryJSON {
			data, err := json.MarshalIndent(matches, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		if len(matches) == 0 {
			fmt.Fprintln(out, "no matches")
			return nil
		}
		for i, m := range matches {
			fmt.Fprintf(out, "%d. [%.3f] %s\n", i+1, m.Similarity, m.Content)
		}
		return nil
	})
}
