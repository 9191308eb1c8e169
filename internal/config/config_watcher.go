package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const (
	reloadDebounce  = 100 * time.Millisecond
	pollingInterval = 5 * time.Second
)

func (m *Manager) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("failed to create file watcher, falling back to polling")
		m.startPollingWatcher()
		return
	}

	// The directory catches editors that save via rename.
	configDir := filepath.Dir(m.configPath)
	if err := watcher.Add(configDir); err != nil {
		log.WithError(err).WithField("dir", configDir).Warn("failed to watch config directory, falling back to polling")
		watcher.Close()
		m.startPollingWatcher()
		return
	}

	log.WithField("path", m.configPath).Debug("config watcher started using fsnotify")

	go func() {
		defer watcher.Close()

		var debounceTimer *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(m.configPath) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(reloadDebounce, m.checkAndReload)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("file watcher error")

			case <-m.stopCh:
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				return
			}
		}
	}()
}

// startPollingWatcher is a fallback when fsnotify is not available.
func (m *Manager) startPollingWatcher() {
	ticker := time.NewTicker(pollingInterval)
	log.WithField("interval", pollingInterval.String()).Info("config watcher started using polling")

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.checkAndReload()
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *Manager) checkAndReload() {
	info, err := os.Stat(m.configPath)
	if err != nil {
		return
	}
	m.mu.RLock()
	changed := info.ModTime().After(m.lastMod)
	m.mu.RUnlock()
	if !changed {
		return
	}

	oldConfig := m.Config()
	newConfig, err := m.load()
	if err != nil {
		log.WithError(err).WithField("path", m.configPath).Warn("failed to reload config, keeping previous")
		return
	}

	m.mu.Lock()
	m.config = newConfig
	m.mu.Unlock()

	logConfigChanges(oldConfig, newConfig)
	m.emitChange(oldConfig, newConfig)
}

func logConfigChanges(old, new *Config) {
	if old.API.BaseURL != new.API.BaseURL {
		log.WithFields(log.Fields{"field": "api.base_url", "old": old.API.BaseURL, "new": new.API.BaseURL}).Info("config changed")
	}
	if old.Log.Debug != new.Log.Debug {
		log.WithFields(log.Fields{"field": "log.debug", "old": old.Log.Debug, "new": new.Log.Debug}).Info("config changed")
	}
	if old.Auth.RefreshPath != new.Auth.RefreshPath {
		log.WithFields(log.Fields{"field": "auth.refresh_path", "old": old.Auth.RefreshPath, "new": new.Auth.RefreshPath}).Info("config changed")
	}
	if old.API.RateLimitRPS != new.API.RateLimitRPS {
		log.WithFields(log.Fields{"field": "api.rate_limit_rps", "old": old.API.RateLimitRPS, "new": new.API.RateLimitRPS}).Info("config changed")
	}
}
