package cmd

import (
	"errors"
	"fmt"
	"strings"

	"autotag/internal/clix"
	"autotag/internal/models"
	"autotag/internal/store"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var categorizeCmd = &cobra.Command{
	Use:   "categorize <post-id>...",
	Short: "Match and apply categories for posts",
	Long: `Matches each post against the site's existing categories using the
configured strategy and replaces the post's categories with the result.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := clix.ParseIDs(args)
		if err != nil {
			return err
		}
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := appInstance.Settings.Load(ctx)
		if err != nil {
			return err
		}

		pass := appInstance.Categorizing.NewPass()
		processed := 0
		for _, id := range ids {
			catIDs, err := pass.GenerateCategories(ctx, st, id)
			switch {
			case errors.Is(err, store.ErrNotFound):
				fmt.Printf("  %d: %s\n", id, color.RedString("not found"))
			case errors.Is(err, models.ErrNotAPost):
				fmt.Printf("  %d: %s\n", id, color.YellowString("not a post, skipped"))
			case err != nil:
				fmt.Printf("  %d: %s %v\n", id, color.RedString("ERROR"), err)
			case len(catIDs) == 0:
				fmt.Printf("  %d: %s\n", id, color.YellowString("no matching category"))
			default:
				processed++
				fmt.Printf("  %d: %s\n", id, color.GreenString(categoryNames(cmd, catIDs)))
			}
		}

		fmt.Printf("\nCategorized %d of %d post(s).\n", processed, len(ids))
		return nil
	},
}

// categoryNames renders ids as names, falling back to the id for unknown
// terms.
func categoryNames(cmd *cobra.Command, ids []int64) string {
	appInstance, err := GetAppFromContext(cmd.Context())
	if err != nil {
		return fmt.Sprint(ids)
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		term, err := appInstance.Store.GetTerm(cmd.Context(), id)
		if err != nil {
			names = append(names, fmt.Sprintf("#%d", id))
			continue
		}
		names = append(names, term.Name)
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(categorizeCmd)
}
