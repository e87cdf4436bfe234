package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dms-object-service/internal/core/domain"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show an object as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := api.GetEntity(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the content copy history of a linked data set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := api.History(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FROM\tUNTIL\tDMS\tCODE\tPATH\tAUTHOR")
		for _, entry := range h.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				entry.ValidFrom, entry.ValidUntil, entry.ExternalDmsID, entry.ExternalCode, entry.Path, entry.AuthorID)
		}
		return w.Flush()
	},
}

var freezeFlags domain.FreezeFlags

var freezeCmd = &cobra.Command{
	Use:   "freeze <id>",
	Short: "Set freeze flags on an object",
	Long: `Set freeze flags on an object. Flags are only ever added; the object
itself is always frozen when any of the --for-* flags is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := freezeFlags
		flags.Frozen = true
		e, err := api.Freeze(cmd.Context(), args[0], flags)
		if err != nil {
			return fmt.Errorf("freeze: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Froze %s %s\n", e.Kind, e.Code)
		return nil
	},
}

func init() {
	f := freezeCmd.Flags()
	f.BoolVar(&freezeFlags.FrozenForProjects, "for-projects", false, "block new projects in a space")
	f.BoolVar(&freezeFlags.FrozenForExperiments, "for-experiments", false, "block new experiments in a project")
	f.BoolVar(&freezeFlags.FrozenForSamples, "for-samples", false, "block new samples")
	f.BoolVar(&freezeFlags.FrozenForDataSets, "for-data-sets", false, "block new data sets")
	f.BoolVar(&freezeFlags.FrozenForComponents, "for-components", false, "block new components")
}
