package service

import (
	"context"
	"fmt"
	"sync"

	"watopic/internal/models"

	"github.com/sirupsen/logrus"
)

// SettingsDatabase defines the persistence operations the gate needs.
type SettingsDatabase interface {
	GetSetting(ctx context.Context, key string) (*models.SettingFlag, error)
	SetSetting(ctx context.Context, key, value, description string) error
}

// SettingsGate answers forwarding-policy questions from a fixed set of
// persisted flags. Reads go through an in-memory cache that is invalidated
// on every write, so a flag change takes effect on the next message.
type SettingsGate struct {
	db     SettingsDatabase
	logger *logrus.Logger

	mu    sync.RWMutex
	cache map[string]string
}

func NewSettingsGate(db SettingsDatabase, logger *logrus.Logger) *SettingsGate {
	return &SettingsGate{
		db:     db,
		logger: logger,
		cache:  make(map[string]string),
	}
}

// Seed writes the default value for every known flag that has no stored
// value yet. Existing values are left untouched.
func (g *SettingsGate) Seed(ctx context.Context) error {
	for _, def := range models.DefaultSettings {
		existing, err := g.db.GetSetting(ctx, def.Key)
		if err != nil {
			return fmt.Errorf("failed to read setting %s: %w", def.Key, err)
		}
		if existing != nil {
			continue
		}
		if err := g.db.SetSetting(ctx, def.Key, def.Default, def.Description); err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", def.Key, err)
		}
	}
	return nil
}

// IsEnabled reports whether the boolean flag under key is on. Unknown keys
// and read failures resolve to the registered default, never to an error,
// so a storage hiccup cannot silently flip policy.
func (g *SettingsGate) IsEnabled(ctx context.Context, key string) bool {
	def, known := defaultFor(key)
	if !known {
		g.logger.WithField("key", key).Warn("Unknown setting key consulted")
		return false
	}

	g.mu.RLock()
	if v, ok := g.cache[key]; ok {
		g.mu.RUnlock()
		return v == "true"
	}
	g.mu.RUnlock()

	flag, err := g.db.GetSetting(ctx, key)
	if err != nil {
		g.logger.WithError(err).WithField("key", key).Warn("Failed to read setting, using default")
		return def == "true"
	}

	value := def
	if flag != nil {
		value = flag.Value
	}

	g.mu.Lock()
	g.cache[key] = value
	g.mu.Unlock()

	return value == "true"
}

// Set updates a flag. Only keys from the registered set are accepted.
func (g *SettingsGate) Set(ctx context.Context, key, value string) error {
	def, known := lookupDefinition(key)
	if !known {
		return fmt.Errorf("unknown setting key: %s", key)
	}
	if value != "true" && value != "false" {
		return fmt.Errorf("invalid value for %s: %q (want true or false)", key, value)
	}

	if err := g.db.SetSetting(ctx, key, value, def.Description); err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}

	g.mu.Lock()
	g.cache[key] = value
	g.mu.Unlock()

	g.logger.WithFields(logrus.Fields{
		"key":   key,
		"value": value,
	}).Info("Setting updated")
	return nil
}

// Snapshot returns the effective value of every known flag.
func (g *SettingsGate) Snapshot(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(models.DefaultSettings))
	for _, def := range models.DefaultSettings {
		out[def.Key] = g.IsEnabled(ctx, def.Key)
	}
	return out
}

// MediaAllowed resolves the flag guarding a particular media kind,
// folding stickers and voice into their dedicated switches.
func (g *SettingsGate) MediaAllowed(ctx context.Context, kind models.MediaKind) bool {
	switch kind {
	case models.MediaKindSticker:
		return g.IsEnabled(ctx, models.SettingAllowStickers)
	case models.MediaKindAudio:
		return g.IsEnabled(ctx, models.SettingAllowVoice)
	default:
		return g.IsEnabled(ctx, models.SettingAllowMedia)
	}
}

func lookupDefinition(key string) (models.SettingDefinition, bool) {
	for _, def := range models.DefaultSettings {
		if def.Key == key {
			return def, true
		}
	}
	return models.SettingDefinition{}, false
}

func defaultFor(key string) (string, bool) {
	def, ok := lookupDefinition(key)
	return def.Default, ok
}
