package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/ottobrew/internal/domain"
)

func newRecipesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "List available recipes",
		Args:  cobra.NoArgs,
		RunE:  runRecipes,
	}
	cmd.Flags().String("search", "", "only show recipes matching this text")
	return cmd
}

func runRecipes(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	query, _ := cmd.Flags().GetString("search")
	list, err := e.recipes.Search(cmd.Context(), query)
	if err != nil {
		return err
	}
	printRecipes(cmd, list)
	return nil
}

func printRecipes(cmd *cobra.Command, list []domain.RecipeSummary) {
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No recipes found.")
		return
	}
	for _, r := range list {
		fmt.Fprintf(out, "  %-12s  %s\n", r.ID, r.Name)
		if r.Description != "" {
			fmt.Fprintf(out, "  %-12s  %s\n", "", r.Description)
		}
		if len(r.Tags) > 0 {
			fmt.Fprintf(out, "  %-12s  [%s]\n", "", strings.Join(r.Tags, ", "))
		}
	}
}
