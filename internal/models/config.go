package models

// Config holds the application configuration
type Config struct {
	WhatsApp      WhatsAppConfig  `json:"whatsapp"`
	Workspace     WorkspaceConfig `json:"workspace"`
	Database      DatabaseConfig  `json:"database"`
	Media         MediaConfig     `json:"media"`
	Retry         RetryConfig     `json:"retry"`
	Tracing       TracingConfig   `json:"tracing"`
	LogLevel      string          `json:"log_level"`
	RetentionDays int             `json:"retentionDays"`
}

// WhatsAppConfig holds source network related configuration
type WhatsAppConfig struct {
	APIBaseURL        string `json:"api_base_url"`
	WebsocketURL      string `json:"websocket_url"`
	APIKey            string `json:"api_key"`
	WebhookSecret     string `json:"webhook_secret"`
	TimeoutSec        int    `json:"timeoutSec"`
	PresencePauseSec  int    `json:"presencePauseSec"`
	ContactCacheHours int    `json:"contactCacheHours"`
}

// WorkspaceConfig holds destination workspace related configuration
type WorkspaceConfig struct {
	APIBaseURL    string  `json:"api_base_url"`
	BotToken      string  `json:"bot_token"`
	ChannelID     int64   `json:"channel_id"`
	AdminIDs      []int64 `json:"admin_ids"`
	WebhookSecret string  `json:"webhook_secret"`
	TimeoutSec    int     `json:"timeoutSec"`
}

// DatabaseConfig holds database related configuration
type DatabaseConfig struct {
	Path string `json:"path"`
}

// MediaConfig holds media pipeline configuration
type MediaConfig struct {
	TempDir   string          `json:"temp_dir"`
	MaxSizeMB MediaSizeLimits `json:"maxSizeMB"`
}

// MediaSizeLimits defines size limits for different media types in MB
type MediaSizeLimits struct {
	Image    int `json:"image"`
	Video    int `json:"video"`
	Document int `json:"document"`
	Voice    int `json:"voice"`
}

// RetryConfig holds retry related configuration
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	Enabled        bool    `json:"enabled"`
	UseStdout      bool    `json:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
