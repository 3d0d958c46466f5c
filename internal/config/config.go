package config

import (
	"encoding/json"
	"fmt"
	"os"

	"watopic/internal/constants"
	"watopic/internal/models"
	"watopic/internal/security"
)

var (
	ErrMissingWhatsAppURL  = models.ConfigError{Message: "missing WhatsApp API URL"}
	ErrMissingWorkspaceURL = models.ConfigError{Message: "missing workspace API URL"}
	ErrMissingChannelID    = models.ConfigError{Message: "missing workspace channel id"}
	ErrMissingDBPath       = models.ConfigError{Message: "missing database path"}
	ErrMissingTempDir      = models.ConfigError{Message: "missing media temp directory"}
)

func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.WhatsApp.APIBaseURL == "" {
		return ErrMissingWhatsAppURL
	}
	if c.Workspace.APIBaseURL == "" {
		return ErrMissingWorkspaceURL
	}
	if c.Workspace.ChannelID == 0 {
		return ErrMissingChannelID
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Media.TempDir == "" {
		return ErrMissingTempDir
	}

	if c.Media.MaxSizeMB.Image == 0 {
		c.Media.MaxSizeMB.Image = constants.DefaultMaxImageSizeMB
	}
	if c.Media.MaxSizeMB.Video == 0 {
		c.Media.MaxSizeMB.Video = constants.DefaultMaxVideoSizeMB
	}
	if c.Media.MaxSizeMB.Document == 0 {
		c.Media.MaxSizeMB.Document = constants.DefaultMaxDocumentSizeMB
	}
	if c.Media.MaxSizeMB.Voice == 0 {
		c.Media.MaxSizeMB.Voice = constants.DefaultMaxVoiceSizeMB
	}

	if c.Retry.InitialBackoffMs == 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs == 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = constants.DefaultRetentionDays
	}
	if c.WhatsApp.ContactCacheHours == 0 {
		c.WhatsApp.ContactCacheHours = constants.DefaultContactCacheHours
	}
	if c.WhatsApp.TimeoutSec == 0 {
		c.WhatsApp.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}
	if c.Workspace.TimeoutSec == 0 {
		c.Workspace.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}

	return nil
}

// applyEnvironmentOverrides lets secrets come from the environment rather
// than the config file.
func applyEnvironmentOverrides(c *models.Config) {
	if v := os.Getenv("WHATSAPP_API_KEY"); v != "" {
		c.WhatsApp.APIKey = v
	}
	if v := os.Getenv("WHATSAPP_WEBHOOK_SECRET"); v != "" {
		c.WhatsApp.WebhookSecret = v
	}
	if v := os.Getenv("WORKSPACE_BOT_TOKEN"); v != "" {
		c.Workspace.BotToken = v
	}
	if v := os.Getenv("WORKSPACE_WEBHOOK_SECRET"); v != "" {
		c.Workspace.WebhookSecret = v
	}
}
