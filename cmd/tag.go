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

var tagCmd = &cobra.Command{
	Use:   "tag <post-id>...",
	Short: "Generate and apply tags for posts",
	Long: `Extracts tags from each post's title and content, refines them through the
configured AI provider when enabled, and replaces the post's tags.
IDs may be given as separate arguments or comma separated.`,
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

		processed := 0
		for _, id := range ids {
			tags, err := appInstance.Tagging.GenerateTags(ctx, st, id)
			switch {
			case errors.Is(err, store.ErrNotFound):
				fmt.Printf("  %d: %s\n", id, color.RedString("not found"))
			case errors.Is(err, models.ErrNotAPost):
				fmt.Printf("  %d: %s\n", id, color.YellowString("not a post, skipped"))
			case err != nil:
				fmt.Printf("  %d: %s %v\n", id, color.RedString("ERROR"), err)
			case len(tags) == 0:
				fmt.Printf("  %d: %s\n", id, color.YellowString("no tags could be generated"))
			default:
				processed++
				fmt.Printf("  %d: %s\n", id, color.GreenString(strings.Join(tags, ", ")))
			}
		}

		fmt.Printf("\nTagged %d of %d post(s).\n", processed, len(ids))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagCmd)
}
