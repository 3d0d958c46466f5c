package config

import (
	"context"
	"path/filepath"
	"sync"

	"watopic/internal/models"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ConfigWatcher watches the configuration file and reloads it on change,
// notifying registered callbacks with the new configuration.
type ConfigWatcher struct {
	configPath string
	logger     *logrus.Logger
	mu         sync.RWMutex
	config     *models.Config
	callbacks  []func(*models.Config)
}

// NewConfigWatcher creates a new configuration watcher
func NewConfigWatcher(configPath string, logger *logrus.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		configPath: configPath,
		logger:     logger,
		callbacks:  make([]func(*models.Config), 0),
	}
}

// OnChange registers a callback invoked after every successful reload.
func (cw *ConfigWatcher) OnChange(cb func(*models.Config)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, cb)
}

// GetConfig returns the most recently loaded configuration.
func (cw *ConfigWatcher) GetConfig() *models.Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.config
}

// Start loads the configuration and begins watching for changes. It blocks
// until the context is cancelled.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	config, err := LoadConfig(cw.configPath)
	if err != nil {
		return err
	}

	cw.mu.Lock()
	cw.config = config
	cw.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which breaks
	// a direct file watch.
	if err := watcher.Add(filepath.Dir(cw.configPath)); err != nil {
		return err
	}

	cw.logger.WithField("path", cw.configPath).Info("Configuration watcher started")

	for {
		select {
		case <-ctx.Done():
			cw.logger.Info("Configuration watcher stopping")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(cw.configPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cw.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cw.logger.WithError(err).Warn("Configuration watcher error")
		}
	}
}

func (cw *ConfigWatcher) reload() {
	config, err := LoadConfig(cw.configPath)
	if err != nil {
		cw.logger.WithError(err).Error("Failed to reload configuration, keeping previous")
		return
	}

	cw.mu.Lock()
	cw.config = config
	callbacks := append([]func(*models.Config){}, cw.callbacks...)
	cw.mu.Unlock()

	cw.logger.Info("Configuration reloaded")
	for _, cb := range callbacks {
		cb(config)
	}
}
