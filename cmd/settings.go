package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"autotag/internal/services"
	"autotag/internal/settings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var showSecrets bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the plugin settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		st, err := appInstance.Settings.Load(cmd.Context())
		if err != nil {
			return err
		}
		fields, err := settingsFields(st)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Key", "Value"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, k := range keys {
			v := formatSettingValue(fields[k])
			if !showSecrets && isSecretSetting(k) && v != "" {
				v = maskSecret(v)
			}
			table.Append([]string{k, v})
		}
		table.Render()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key=value>...",
	Short: "Change settings and save them",
	Long: `Changes one or more settings and saves them the way the settings page
does: values are clamped, the API key is verified with the license server
and the schedule is re-armed when a schedule field changed.`,
	Example: `  autotag settings set auto_tag_enabled=true max_tags_per_post=8
  autotag settings set schedule_enabled=true schedule_time=03:30`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		st, err := appInstance.Settings.Load(cmd.Context())
		if err != nil {
			return err
		}
		next, err := applySettingAssignments(st, args)
		if err != nil {
			return err
		}

		_, notices, err := appInstance.Settings.Save(cmd.Context(), next)
		if err != nil {
			return err
		}
		for _, n := range notices {
			if n.Type == services.NoticeError {
				fmt.Println(color.RedString(n.Message))
				continue
			}
			fmt.Println(color.GreenString(n.Message))
		}
		return nil
	},
}

// readOnlySettings are maintained by the license check.
var readOnlySettings = map[string]bool{
	"api_key_license_status": true,
	"api_key_license_data":   true,
	"api_key_last_checked":   true,
}

// applySettingAssignments applies key=value pairs to st. Values are parsed
// according to the type of the existing field.
func applySettingAssignments(st settings.Settings, pairs []string) (settings.Settings, error) {
	fields, err := settingsFields(st)
	if err != nil {
		return st, err
	}

	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return st, fmt.Errorf("expected key=value, got %q", pair)
		}
		current, known := fields[key]
		if !known {
			return st, fmt.Errorf("unknown setting %q", key)
		}
		if readOnlySettings[key] {
			return st, fmt.Errorf("setting %q is read-only", key)
		}

		switch current.(type) {
		case bool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return st, fmt.Errorf("setting %q expects true or false", key)
			}
			fields[key] = b
		case float64:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return st, fmt.Errorf("setting %q expects an integer", key)
			}
			fields[key] = n
		default:
			// Lets multi-line values such as the exclusion list use \n.
			fields[key] = strings.ReplaceAll(raw, `\n`, "\n")
		}
	}

	b, err := json.Marshal(fields)
	if err != nil {
		return st, fmt.Errorf("encode settings: %w", err)
	}
	var out settings.Settings
	if err := json.Unmarshal(b, &out); err != nil {
		return st, fmt.Errorf("decode settings: %w", err)
	}
	return out, nil
}

func settingsFields(st settings.Settings) (map[string]any, error) {
	raw, err := st.Encode()
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return fields, nil
}

func formatSettingValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.ReplaceAll(val, "\n", `\n`)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]any:
		b, _ := json.Marshal(val)
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

func isSecretSetting(key string) bool {
	return key == "api_key" || key == "ai_api_key"
}

func maskSecret(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}

func init() {
	settingsShowCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print API keys unmasked")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
