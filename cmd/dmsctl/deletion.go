package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dms-object-service/internal/adapters/primary/http/dto"
)

var deleteReason string

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Move objects and their dependents to the trash",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := api.Delete(cmd.Context(), args, deleteReason)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		if resp.DeletionID == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to delete")
			return nil
		}
		set, err := api.GetDeletion(cmd.Context(), resp.DeletionID.String())
		if err != nil {
			return fmt.Errorf("get deletion: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created deletion %s with %d object(s)\n", set.ID, len(set.EntityIDs))
		return nil
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert <deletion-id>",
	Short: "Restore every object of a deletion set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.Revert(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("revert: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reverted deletion %s\n", args[0])
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge <deletion-id>",
	Short: "Permanently remove every object of a deletion set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.Purge(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("purge: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purged deletion %s\n", args[0])
		return nil
	},
}

var (
	deletionsStatus string
	deletionsLimit  int
	deletionsOffset int
)

var deletionsCmd = &cobra.Command{
	Use:   "deletions",
	Short: "List deletion sets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := api.ListDeletions(cmd.Context(), deletionsStatus, deletionsLimit, deletionsOffset)
		if err != nil {
			return fmt.Errorf("list deletions: %w", err)
		}
		printDeletions(cmd, list.Items)
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d\n", len(list.Items), list.Total)
		return nil
	},
}

func printDeletions(cmd *cobra.Command, items []dto.DeletionResponse) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tOBJECTS\tOWNER\tCREATED\tREASON")
	for _, d := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", d.ID, d.Status, len(d.EntityIDs), d.OwnerUserID, d.CreatedAt, d.Reason)
	}
	_ = w.Flush()
}

func init() {
	deleteCmd.Flags().StringVarP(&deleteReason, "reason", "r", "", "reason recorded on the deletion set")
	_ = deleteCmd.MarkFlagRequired("reason")

	deletionsCmd.Flags().StringVar(&deletionsStatus, "status", "", "filter by status (ACTIVE, REVERTED, PURGED)")
	deletionsCmd.Flags().IntVar(&deletionsLimit, "limit", 20, "page size")
	deletionsCmd.Flags().IntVar(&deletionsOffset, "offset", 0, "page offset")
}
