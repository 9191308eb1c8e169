package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"clubhub-go/internal/events"

	log "github.com/sirupsen/logrus"
)

// Manager holds the live configuration and reloads it when the file changes.
type Manager struct {
	mu         sync.RWMutex
	config     *Config
	configPath string
	stopCh     chan struct{}
	stopOnce   sync.Once
	onChange   []func(*Config)
	lastMod    time.Time
	publisher  events.Publisher
}

// NewManager loads the configuration at path and, when it is a real file,
// starts watching it.
func NewManager(path string) (*Manager, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		configPath: resolved,
		stopCh:     make(chan struct{}),
	}

	cfg, err := m.load()
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = Default()
		applyEnv(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		log.WithField("path", resolved).Warn("using default configuration (no config file found)")
	}
	m.config = cfg

	if m.configPath != "" {
		if _, err := os.Stat(m.configPath); err == nil {
			m.startWatcher()
		}
	}
	return m, nil
}

// Path returns the watched file, or "" when running on defaults.
func (m *Manager) Path() string { return m.configPath }

// OnChange registers a callback for configuration changes.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// SetEventPublisher wires the event hub used to broadcast config updates.
func (m *Manager) SetEventPublisher(p events.Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publisher = p
}

// Config returns a copy of the current configuration.
func (m *Manager) Config() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Clone()
}

func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Manager) load() (*Config, error) {
	if m.configPath == "" {
		return nil, os.ErrNotExist
	}
	info, err := os.Stat(m.configPath)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := decodeFile(m.configPath, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.lastMod = info.ModTime()
	m.mu.Unlock()

	log.WithField("path", m.configPath).Info("configuration loaded")
	return cfg, nil
}

func (m *Manager) emitChange(oldCfg, newCfg *Config) {
	m.mu.RLock()
	callbacks := make([]func(*Config), len(m.onChange))
	copy(callbacks, m.onChange)
	publisher := m.publisher
	path := m.configPath
	m.mu.RUnlock()

	for _, fn := range callbacks {
		fn(newCfg.Clone())
	}

	if publisher != nil {
		publisher.Publish(context.Background(), events.TopicConfigUpdated, ChangeEvent{
			Path:      path,
			UpdatedAt: time.Now().UTC(),
			Config:    newCfg.Clone(),
			Previous:  oldCfg,
		}, nil)
	}
}

// ChangeEvent is the payload broadcast when configuration changes.
type ChangeEvent struct {
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
	Config    *Config   `json:"config"`
	Previous  *Config   `json:"previous,omitempty"`
}
