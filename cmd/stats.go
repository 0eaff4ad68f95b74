package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	statsMonths int
	statsLimit  int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show tag usage and monthly post statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		tagged, err := appInstance.Stats.TaggedPostCount(ctx)
		if err != nil {
			return err
		}
		usage, err := appInstance.Stats.TagUsage(ctx, statsLimit)
		if err != nil {
			return err
		}
		monthly, err := appInstance.Stats.MonthlyPosts(ctx, statsMonths)
		if err != nil {
			return err
		}

		fmt.Printf("Tagged posts:          %s\n", color.CyanString(strconv.Itoa(tagged)))
		fmt.Printf("Tag assignments:       %d\n", usage.TotalAssignments)
		fmt.Printf("Unused tags:           %d\n", usage.UnusedTags)
		fmt.Printf("Avg tags/tagged post:  %.1f\n\n", usage.AverageTagsPerTaggedPost)

		if len(usage.TopTags) > 0 {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Top Tag", "Posts"})
			table.SetBorder(false)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			for _, t := range usage.TopTags {
				table.Append([]string{t.Name, strconv.Itoa(t.Count)})
			}
			table.Render()
			fmt.Println()
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Month", "Published", "Tagged", "Untagged"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, m := range monthly {
			table.Append([]string{
				fmt.Sprintf("%s %d", m.Label, m.Year),
				strconv.Itoa(m.Total),
				strconv.Itoa(m.Tagged),
				strconv.Itoa(m.Untagged),
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsMonths, "months", 12, "Number of months in the series (1-24)")
	statsCmd.Flags().IntVar(&statsLimit, "limit", 8, "Number of top tags to show (1-20)")
	rootCmd.AddCommand(statsCmd)
}
