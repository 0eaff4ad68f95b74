package cmd

import (
	"fmt"

	"autotag/internal/settings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check database connectivity, settings and the schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}
		cfg := appInstance.Config

		fmt.Printf("Checking %s database connectivity...\n", cfg.Database.Driver)
		if err := appInstance.Store.Ping(ctx); err != nil {
			fmt.Printf("  %s %v\n", color.RedString("FAIL"), err)
			return fmt.Errorf("database ping failed: %w", err)
		}
		fmt.Printf("  %s\n", color.GreenString("OK"))

		fmt.Println("Loading settings...")
		st, err := appInstance.Settings.Load(ctx)
		if err != nil {
			fmt.Printf("  %s %v\n", color.RedString("FAIL"), err)
			return err
		}
		fmt.Printf("  %s auto-tag=%s auto-category=%s schedule=%s\n",
			color.GreenString("OK"), onOff(st.AutoTagEnabled), onOff(st.AutoCategoryEnabled), onOff(st.ScheduleEnabled))

		switch {
		case st.APIKey == "":
			fmt.Printf("  license: %s\n", color.YellowString("no API key"))
		case st.APIKeyLicenseStatus == settings.LicenseStatusValid:
			fmt.Printf("  license: %s (%s)\n", color.GreenString("valid"), st.APIKeyLicenseData.LicenseType)
		default:
			fmt.Printf("  license: %s\n", color.RedString(st.APIKeyLicenseStatus))
		}

		fmt.Println("Checking schedule...")
		status, err := appInstance.Scheduler.Status(ctx)
		if err != nil {
			fmt.Printf("  %s %v\n", color.RedString("FAIL"), err)
			return err
		}
		switch {
		case status.Enabled && status.NextRun == nil:
			fmt.Printf("  %s schedule is enabled but nothing is armed; run `autotag schedule sync`\n", color.YellowString("WARN"))
		case status.NextRun != nil:
			fmt.Printf("  %s next run %s\n", color.GreenString("OK"), status.NextRun.Format("2006-01-02 15:04 MST"))
		default:
			fmt.Printf("  %s schedule disabled\n", color.GreenString("OK"))
		}

		if cfg.Server.APIToken == "" {
			fmt.Printf("  %s server.api_token is empty; the HTTP API rejects every request\n", color.YellowString("WARN"))
		}
		if cfg.Server.NonceSecret == "" {
			fmt.Printf("  %s server.nonce_secret is empty; nonces use a random key and expire on restart\n", color.YellowString("WARN"))
		}
		return nil
	},
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
