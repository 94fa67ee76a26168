package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	resourceListLimit int
	resourceListJSON  bool
)

var resourceCmd = &cobra.Command{
	Use:   "resource",
	Short: "Manage stored resources",
}

var resourceDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a resource and its embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runResourceDelete,
}

var resourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resources with their embedding counts",
	Args:  cobra.NoArgs,
	RunE:  runResourceList,
}

func init() {
	resourceListCmd.Flags().IntVarP(&resourceListLimit, "limit", "n", 50, "maximum number of resources")
	resourceListCmd.Flags().BoolVar(&resourceListJSON, "json", false, "output as JSON")
	resourceCmd.AddCommand(resourceDeleteCmd)
	resourceCmd.AddCommand(resourceListCmd)
	rootCmd.AddCommand(resourceCmd)
}

func runResourceDelete(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
		if err := rt.Resources.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	})
}

func runResourceList(cmd *cobra.Command, args []string) error {
	return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
		list, err := rt.Resources.List(ctx, resourceListLimit)
		if err != nil {
			return err
		}
		if resourceListJSON {
			data, err := json.MarshalIndent(list, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no resources")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMBEDDINGS\tCREATED\tPREVIEW")
		for _, r := range list {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.ID, r.Embeddings, r.CreatedAt, r.Preview)
		}
		return w.Flush()
	})
}
