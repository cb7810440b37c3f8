package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent brews",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().Int("limit", 10, "number of brews to show")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	limit, _ := cmd.Flags().GetInt("limit")
	sessions, err := e.store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No brews yet.")
		return nil
	}

	fmt.Fprintf(out, "Recent brews (%d):\n\n", len(sessions))
	for _, s := range sessions {
		fmt.Fprintf(out, "  %s  %-9s  %5s  %-24s  %.1f g %s/%s  %s\n",
			s.UpdatedAt.Local().Format("2006-01-02 15:04"),
			s.Status,
			formatClock(s.ElapsedSec),
			s.RecipeName,
			s.Params.BeansGrams, s.Params.Flavor, s.Params.Strength,
			s.ID[:min(8, len(s.ID))])
	}
	return nil
}
