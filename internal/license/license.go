// Package license checks plugin API keys against the vendor license server.
package license

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"autotag/internal/settings"

	log "github.com/sirupsen/logrus"
)

// MinKeyLength is the shortest API key accepted.
const MinKeyLength = 20

// DefaultTimeout bounds one verification request.
const DefaultTimeout = 15 * time.Second

var (
	ErrKeyTooShort    = errors.New("API key must be at least 20 characters long")
	ErrKeyInvalidChar = errors.New("API key can only contain letters, numbers, dashes, and underscores")
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateFormat checks the key's length and character set. It does not
// contact the license server.
func ValidateFormat(key string) error {
	if len(key) < MinKeyLength {
		return ErrKeyTooShort
	}
	if !keyPattern.MatchString(key) {
		return ErrKeyInvalidChar
	}
	return nil
}

// Result is the outcome of a verification. Message is meant for operators.
type Result struct {
	Valid   bool
	Message string
	Data    settings.LicenseData
}

// Verifier posts keys to the license server.
type Verifier struct {
	serverURL     string
	siteURL       string
	pluginVersion string
	client        *http.Client
}

func NewVerifier(serverURL, siteURL, pluginVersion string, timeout time.Duration) *Verifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Verifier{
		serverURL:     serverURL,
		siteURL:       siteURL,
		pluginVersion: pluginVersion,
		client:        &http.Client{Timeout: timeout},
	}
}

type verifyRequest struct {
	APIKey        string `json:"api_key"`
	SiteURL       string `json:"site_url"`
	PluginVersion string `json:"plugin_version"`
}

type verifyResponse struct {
	Valid        *bool  `json:"valid"`
	Message      string `json:"message"`
	LicenseType  string `json:"license_type"`
	ExpiresAt    string `json:"expires_at"`
	CustomerName string `json:"customer_name"`
	MaxSites     *int   `json:"max_sites"`
}

// Verify asks the license server about key. Transport failures, non-200
// answers and anything but an explicit "valid": true are reported as an
// invalid Result, never as an error.
func (v *Verifier) Verify(ctx context.Context, key string) Result {
	if v.serverURL == "" {
		return Result{Message: "License server is not configured"}
	}

	body, err := json.Marshal(verifyRequest{APIKey: key, SiteURL: v.siteURL, PluginVersion: v.pluginVersion})
	if err != nil {
		return Result{Message: fmt.Sprintf("Could not encode license request: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.serverURL, bytes.NewReader(body))
	if err != nil {
		return Result{Message: fmt.Sprintf("Could not build license request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Result{Message: fmt.Sprintf("Could not connect to license server: %v", err)}
	}
	defer resp.Body.Close()

	var data verifyResponse
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		log.Debugf("Reading license server reply (status %d) failed: %v", resp.StatusCode, err)
	} else if err := json.Unmarshal(raw, &data); err != nil {
		log.Debugf("Malformed license server reply (status %d): %v", resp.StatusCode, err)
	}

	if resp.StatusCode == http.StatusOK && data.Valid != nil && *data.Valid {
		ld := settings.LicenseData{
			LicenseType:  data.LicenseType,
			ExpiresAt:    data.ExpiresAt,
			CustomerName: data.CustomerName,
			MaxSites:     1,
		}
		if ld.LicenseType == "" {
			ld.LicenseType = "standard"
		}
		if data.MaxSites != nil {
			ld.MaxSites = *data.MaxSites
		}
		return Result{Valid: true, Message: "License verified successfully", Data: ld}
	}

	msg := data.Message
	if msg == "" {
		msg = "Invalid license key"
	}
	return Result{Message: msg}
}
