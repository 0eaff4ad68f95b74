package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Option names used in the host settings store. They differ from the PHP
// plugin's gd_autotag_* options, which hold PHP-serialized values.
const (
	OptionName        = "autotag_settings"
	LastRunOptionName = "autotag_schedule_last_run"
	CronOptionName    = "autotag_schedule"
)

// Schedule frequencies understood by the host scheduling facility.
const (
	FrequencyHourly     = "hourly"
	FrequencyTwiceDaily = "twicedaily"
	FrequencyDaily      = "daily"
)

// Category matching strategies.
const (
	StrategyTagMatch     = "tag-match"
	StrategyContentMatch = "content-match"
)

// AI providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderCustom    = "custom"
)

// License status values stored next to the API key.
const (
	LicenseStatusValid   = "valid"
	LicenseStatusInvalid = "invalid"
)

const (
	DefaultMaxTags       = 10
	MaxMaxTags           = 50
	DefaultBatchSize     = 5
	MaxBatchSize         = 50
	DefaultMaxCategories = 3
	MaxMaxCategories     = 10
	DefaultScheduleTime  = "02:00"
)

var scheduleTimePattern = regexp.MustCompile(`^(\d{2}):(\d{2})$`)

// LicenseData is the payload returned by the license server for a valid key.
type LicenseData struct {
	LicenseType  string `json:"license_type,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	MaxSites     int    `json:"max_sites,omitempty"`
}

// Settings is the flat configuration record persisted under OptionName.
type Settings struct {
	APIKey                    string      `json:"api_key"`
	APIKeyLicenseStatus       string      `json:"api_key_license_status"`
	APIKeyLicenseData         LicenseData `json:"api_key_license_data"`
	APIKeyLastChecked         int64       `json:"api_key_last_checked"`
	DebugMode                 bool        `json:"debug_mode"`
	AutoTagEnabled            bool        `json:"auto_tag_enabled"`
	MaxTagsPerPost            int         `json:"max_tags_per_post"`
	TagExclusionList          string      `json:"tag_exclusion_list"`
	AIOptimizationEnabled     bool        `json:"ai_optimization_enabled"`
	AIProvider                string      `json:"ai_provider"`
	AIAPIKey                  string      `json:"ai_api_key"`
	ScheduleEnabled           bool        `json:"schedule_enabled"`
	ScheduleFrequency         string      `json:"schedule_frequency"`
	ScheduleTime              string      `json:"schedule_time"`
	ScheduleBatchSize         int         `json:"schedule_batch_size"`
	AutoCategoryEnabled       bool        `json:"auto_category_enabled"`
	AutoCategorySyncOnSave    bool        `json:"auto_category_sync_on_save"`
	AutoCategoryStrategy      string      `json:"auto_category_strategy"`
	AutoCategoryMaxCategories int         `json:"auto_category_max_categories"`
	AutoCategoryFallback      int64       `json:"auto_category_fallback"`
}

// Defaults returns the settings used for every key missing from storage.
func Defaults() Settings {
	return Settings{
		MaxTagsPerPost:            DefaultMaxTags,
		AIProvider:                ProviderOpenAI,
		ScheduleFrequency:         FrequencyDaily,
		ScheduleTime:              DefaultScheduleTime,
		ScheduleBatchSize:         DefaultBatchSize,
		AutoCategoryStrategy:      StrategyTagMatch,
		AutoCategoryMaxCategories: DefaultMaxCategories,
	}
}

// Decode parses a stored settings record. Missing keys keep their defaults and
// out-of-range values are clamped. An empty or unreadable record yields the
// defaults.
func Decode(raw []byte) Settings {
	s := Defaults()
	if len(strings.TrimSpace(string(raw))) == 0 {
		return s
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		if isPHPSerialized(raw) {
			log.Warnf("Option %s holds a PHP-serialized value; using defaults", OptionName)
		} else {
			log.Warnf("Option %s is not valid JSON, using defaults: %v", OptionName, err)
		}
		return Defaults()
	}
	return s.Normalize()
}

// phpSerialized matches the start of a PHP serialize() value.
var phpSerialized = regexp.MustCompile(`^(a|O|s|i|b|d):\d*[:;]`)

func isPHPSerialized(raw []byte) bool {
	return phpSerialized.Match(bytes.TrimSpace(raw))
}

// Encode serializes the settings for storage.
func (s Settings) Encode() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return b, nil
}

// Normalize applies the numeric clamps and enum fallbacks.
func (s Settings) Normalize() Settings {
	s.MaxTagsPerPost = ClampMaxTags(s.MaxTagsPerPost)
	s.ScheduleBatchSize = ClampBatchSize(s.ScheduleBatchSize)

	if s.AutoCategoryMaxCategories < 1 {
		s.AutoCategoryMaxCategories = 1
	} else if s.AutoCategoryMaxCategories > MaxMaxCategories {
		s.AutoCategoryMaxCategories = MaxMaxCategories
	}
	if s.AutoCategoryFallback < 0 {
		s.AutoCategoryFallback = 0
	}

	s.ScheduleFrequency = NormalizeFrequency(s.ScheduleFrequency)
	if _, _, ok := ParseScheduleTime(s.ScheduleTime); !ok {
		s.ScheduleTime = DefaultScheduleTime
	}

	switch s.AutoCategoryStrategy {
	case StrategyTagMatch, StrategyContentMatch:
	default:
		s.AutoCategoryStrategy = StrategyTagMatch
	}

	s.AIProvider = strings.TrimSpace(s.AIProvider)
	if s.AIProvider == "" {
		s.AIProvider = ProviderOpenAI
	}
	return s
}

// ClampMaxTags bounds the per-post tag limit to 1..50, falling back to the
// default for non-positive values.
func ClampMaxTags(n int) int {
	if n < 1 {
		return DefaultMaxTags
	}
	if n > MaxMaxTags {
		return MaxMaxTags
	}
	return n
}

// ClampBatchSize bounds the scheduler batch size to 1..50.
func ClampBatchSize(n int) int {
	if n < 1 {
		return DefaultBatchSize
	}
	if n > MaxBatchSize {
		return MaxBatchSize
	}
	return n
}

// NormalizeFrequency maps unknown frequencies to daily.
func NormalizeFrequency(f string) string {
	switch f {
	case FrequencyHourly, FrequencyTwiceDaily, FrequencyDaily:
		return f
	default:
		return FrequencyDaily
	}
}

// ParseScheduleTime parses an "HH:MM" time of day.
func ParseScheduleTime(v string) (hour, minute int, ok bool) {
	m := scheduleTimePattern.FindStringSubmatch(v)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// ScheduleChanged reports whether any field that drives the recurring
// trigger differs between two settings records.
func ScheduleChanged(old, new Settings) bool {
	return old.ScheduleEnabled != new.ScheduleEnabled ||
		old.ScheduleFrequency != new.ScheduleFrequency ||
		old.ScheduleTime != new.ScheduleTime
}
