package models

import "time"

// Setting keys consulted before forwarding decisions. The set is fixed;
// unknown keys are rejected by the gate.
const (
	SettingBridgeEnabled = "bridge-enabled"
	SettingAllowMedia    = "allow-media"
	SettingAllowStickers = "allow-stickers"
	SettingAllowVoice    = "allow-voice"
	SettingSyncContacts  = "sync-contacts"
	SettingSyncStatus    = "sync-status"
)

// SettingFlag is a persisted key/value pair controlling a forwarding
// category. Values are stored as strings; boolean flags use "true"/"false".
type SettingFlag struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SettingDefinition describes a known flag and its default.
type SettingDefinition struct {
	Key         string
	Default     string
	Description string
}

// DefaultSettings lists every flag the gate recognizes.
var DefaultSettings = []SettingDefinition{
	{SettingBridgeEnabled, "true", "Master switch for all forwarding"},
	{SettingAllowMedia, "true", "Forward images, video and documents"},
	{SettingAllowStickers, "true", "Forward stickers"},
	{SettingAllowVoice, "true", "Forward voice notes and audio"},
	{SettingSyncContacts, "true", "Propagate contact name changes"},
	{SettingSyncStatus, "false", "Forward status broadcast posts"},
}
