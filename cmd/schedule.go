package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Inspect and manage the recurring batch",
}

var scheduleStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schedule settings with the next and last run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		status, err := appInstance.Scheduler.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load schedule status: %w", err)
		}

		enabled := color.RedString("disabled")
		if status.Enabled {
			enabled = color.GreenString("enabled")
		}
		next, last := "-", "never"
		if status.NextRun != nil {
			next = status.NextRun.Format("2006-01-02 15:04 MST")
		}
		if status.LastRun != nil {
			last = status.LastRun.Format("2006-01-02 15:04 MST")
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetBorder(false)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.AppendBulk([][]string{
			{"Status", enabled},
			{"Frequency", status.Frequency},
			{"Time", status.Time},
			{"Batch size", strconv.Itoa(status.BatchSize)},
			{"Next run", next},
			{"Last run", last},
		})
		table.Render()
		return nil
	},
}

var scheduleSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Arm or clear the recurring trigger to match the settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if err := appInstance.Scheduler.MaybeSchedule(cmd.Context()); err != nil {
			return fmt.Errorf("failed to sync schedule: %w", err)
		}
		fmt.Println("Schedule is in sync with the settings.")
		return nil
	},
}

func init() {
	scheduleCmd.AddCommand(scheduleStatusCmd)
	scheduleCmd.AddCommand(scheduleSyncCmd)
	rootCmd.AddCommand(scheduleCmd)
}
