package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scheduled batch now",
	Long: `Runs the tag and categorize batch immediately, exactly as the recurring
schedule would, and records the run time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		res, err := appInstance.Scheduler.RunNow(cmd.Context())
		if err != nil {
			fmt.Printf("%s %v\n", color.RedString("Run failed:"), err)
			return err
		}

		status := color.GreenString(res.Status)
		if res.Status != "success" {
			status = color.YellowString(res.Status)
		}
		fmt.Printf("Run %s: %d post(s) processed in %s\n",
			status, res.Processed, res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
