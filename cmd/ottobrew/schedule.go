package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/engine"
	"github.com/hammamikhairi/ottobrew/internal/recipe"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule <recipe-id>",
		Short: "Print the pour schedule for a recipe",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedule,
	}
	addParamFlags(cmd)
	return cmd
}

// addParamFlags defines the brew parameter flags. Unset flags take the
// recipe's defaults.
func addParamFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("beans", 0, "coffee dose in grams")
	cmd.Flags().String("flavor", "", "sweet, neutral or sour")
	cmd.Flags().String("strength", "", "light, medium or strong")
}

func paramsFromFlags(cmd *cobra.Command) domain.BrewParams {
	beans, _ := cmd.Flags().GetFloat64("beans")
	flavor, _ := cmd.Flags().GetString("flavor")
	strength, _ := cmd.Flags().GetString("strength")
	return domain.BrewParams{
		BeansGrams: beans,
		Flavor:     domain.Flavor(flavor),
		Strength:   domain.Strength(strength),
	}
}

func runSchedule(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	eng := engine.New(e.recipes, e.store, e.log)
	steps, params, err := eng.Schedule(cmd.Context(), args[0], paramsFromFlags(cmd))
	if err != nil {
		return err
	}
	def, err := eng.GetRecipe(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	locale := recipe.MatchLocale(e.cfg.Locale, recipe.Locales(def))
	printSchedule(cmd.OutOrStdout(), def, params, steps, locale)
	return nil
}

func printSchedule(out io.Writer, def *domain.RecipeDefinition, p domain.BrewParams, steps []domain.CalculatedStep, locale string) {
	fmt.Fprintf(out, "%s: %.1f g, %s, %s\n\n", def.Name, p.BeansGrams, p.Flavor, p.Strength)
	for _, st := range steps {
		pour := ""
		if st.PourVolumeMl > 0 {
			pour = fmt.Sprintf("+%d", st.PourVolumeMl)
		}
		fmt.Fprintf(out, "  %5s  %4d ml  %5s  %s", formatClock(st.TimeSec), st.CumulativeVolumeMl, pour, st.Name(locale))
		if action := st.Action(locale); action != "" {
			fmt.Fprintf(out, ": %s", action)
		}
		fmt.Fprintln(out)
	}
}

func formatClock(sec float64) string {
	total := int(sec)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
