package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"autotag/internal/license"
	"autotag/internal/settings"
	"autotag/internal/store"

	log "github.com/sirupsen/logrus"
)

// Notice types shown to the operator after a settings save.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Notice is one operator-facing message produced by a save.
type Notice struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LicenseVerifier checks an API key with the license server.
type LicenseVerifier interface {
	Verify(ctx context.Context, key string) license.Result
}

// ScheduleUpdater re-registers the recurring trigger after a settings change.
type ScheduleUpdater interface {
	HandleSettingsUpdate(ctx context.Context, old, new settings.Settings) error
}

// SettingsService loads and saves the plugin settings record.
type SettingsService struct {
	options  store.OptionStore
	verifier LicenseVerifier
	now      func() time.Time

	mu       sync.Mutex
	schedule ScheduleUpdater
}

func NewSettingsService(options store.OptionStore, verifier LicenseVerifier) *SettingsService {
	return &SettingsService{options: options, verifier: verifier, now: time.Now}
}

// SetScheduleUpdater wires the scheduler, which itself depends on this
// service for loading settings.
func (s *SettingsService) SetScheduleUpdater(u ScheduleUpdater) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = u
}

// Load returns the stored settings with defaults for every missing key.
func (s *SettingsService) Load(ctx context.Context) (settings.Settings, error) {
	raw, err := s.options.GetOption(ctx, settings.OptionName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return settings.Defaults(), nil
		}
		return settings.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings.Decode(raw), nil
}

// Save sanitizes in, verifies the API key and persists the result. When a
// schedule field changed the recurring trigger is re-registered; if that
// fails the previous settings are restored and the error is returned.
// License problems never fail a save; they come back as error notices.
func (s *SettingsService) Save(ctx context.Context, in settings.Settings) (settings.Settings, []Notice, error) {
	old, err := s.Load(ctx)
	if err != nil {
		return settings.Settings{}, nil, err
	}

	next, notices := s.sanitize(ctx, in)

	if err := s.write(ctx, next); err != nil {
		return settings.Settings{}, nil, err
	}

	s.mu.Lock()
	updater := s.schedule
	s.mu.Unlock()

	if updater != nil && settings.ScheduleChanged(old, next) {
		if err := updater.HandleSettingsUpdate(ctx, old, next); err != nil {
			if rbErr := s.write(ctx, old); rbErr != nil {
				log.Errorf("Failed to restore previous settings after schedule error: %v", rbErr)
			}
			if rbErr := updater.HandleSettingsUpdate(ctx, next, old); rbErr != nil {
				log.Errorf("Failed to restore previous schedule: %v", rbErr)
			}
			return old, nil, fmt.Errorf("failed to update schedule: %w", err)
		}
	}

	notices = append(notices, Notice{Type: NoticeSuccess, Code: "settings_saved", Message: "Settings saved."})
	return next, notices, nil
}

func (s *SettingsService) write(ctx context.Context, st settings.Settings) error {
	raw, err := st.Encode()
	if err != nil {
		return err
	}
	if err := s.options.SetOption(ctx, settings.OptionName, raw); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// sanitize normalizes the record and resolves the API key's license state.
func (s *SettingsService) sanitize(ctx context.Context, in settings.Settings) (settings.Settings, []Notice) {
	next := in.Normalize()
	next.APIKey = strings.TrimSpace(next.APIKey)
	next.AIAPIKey = strings.TrimSpace(next.AIAPIKey)
	next.APIKeyLicenseStatus = ""
	next.APIKeyLicenseData = settings.LicenseData{}
	next.APIKeyLastChecked = 0

	if next.APIKey == "" {
		return next, nil
	}

	if err := license.ValidateFormat(next.APIKey); err != nil {
		next.APIKey = ""
		return next, []Notice{{Type: NoticeError, Code: "api_key_error", Message: err.Error() + "."}}
	}

	var res license.Result
	if s.verifier != nil {
		res = s.verifier.Verify(ctx, next.APIKey)
	} else {
		res = license.Result{Message: "License server is not configured"}
	}
	next.APIKeyLastChecked = s.now().Unix()

	if res.Valid {
		next.APIKeyLicenseStatus = settings.LicenseStatusValid
		next.APIKeyLicenseData = res.Data
		return next, []Notice{{
			Type:    NoticeSuccess,
			Code:    "api_key_success",
			Message: "API Key validated successfully. License: " + res.Data.LicenseType,
		}}
	}

	next.APIKeyLicenseStatus = settings.LicenseStatusInvalid
	return next, []Notice{{
		Type:    NoticeError,
		Code:    "api_key_error",
		Message: "API Key format is valid, but license verification failed: " + res.Message,
	}}
}
