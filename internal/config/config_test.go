package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigJSON = `{
	"whatsapp": {
		"api_base_url": "http://localhost:3000/api",
		"api_key": "file-key"
	},
	"workspace": {
		"api_base_url": "https://workspace.example/bot",
		"bot_token": "file-token",
		"channel_id": -100123456
	},
	"database": {
		"path": "./watopic.db"
	},
	"media": {
		"temp_dir": "/tmp/watopic"
	}
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfigJSON))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000/api", cfg.WhatsApp.APIBaseURL)
	assert.EqualValues(t, -100123456, cfg.Workspace.ChannelID)
	assert.Equal(t, "./watopic.db", cfg.Database.Path)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfigJSON))
	require.NoError(t, err)

	assert.Positive(t, cfg.Media.MaxSizeMB.Image)
	assert.Positive(t, cfg.Media.MaxSizeMB.Video)
	assert.Positive(t, cfg.Retry.MaxAttempts)
	assert.Positive(t, cfg.RetentionDays)
	assert.Positive(t, cfg.WhatsApp.TimeoutSec)
	assert.Positive(t, cfg.Workspace.TimeoutSec)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsTraversalPath(t *testing.T) {
	_, err := LoadConfig("../../etc/watopic.json")
	assert.Error(t, err)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "{not json"))
	assert.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"missing whatsapp url", `{"workspace":{"api_base_url":"x","channel_id":1},"database":{"path":"x"},"media":{"temp_dir":"x"}}`, ErrMissingWhatsAppURL},
		{"missing workspace url", `{"whatsapp":{"api_base_url":"x"},"database":{"path":"x"},"media":{"temp_dir":"x"}}`, ErrMissingWorkspaceURL},
		{"missing channel id", `{"whatsapp":{"api_base_url":"x"},"workspace":{"api_base_url":"x"},"database":{"path":"x"},"media":{"temp_dir":"x"}}`, ErrMissingChannelID},
		{"missing db path", `{"whatsapp":{"api_base_url":"x"},"workspace":{"api_base_url":"x","channel_id":1},"media":{"temp_dir":"x"}}`, ErrMissingDBPath},
		{"missing temp dir", `{"whatsapp":{"api_base_url":"x"},"workspace":{"api_base_url":"x","channel_id":1},"database":{"path":"x"}}`, ErrMissingTempDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.json))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEnvironmentOverridesSecrets(t *testing.T) {
	t.Setenv("WHATSAPP_API_KEY", "env-key")
	t.Setenv("WORKSPACE_BOT_TOKEN", "env-token")

	cfg, err := LoadConfig(writeConfig(t, validConfigJSON))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.WhatsApp.APIKey)
	assert.Equal(t, "env-token", cfg.Workspace.BotToken)
}
