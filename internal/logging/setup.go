package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"clubhub-go/internal/config"

	log "github.com/sirupsen/logrus"
)

var (
	logMux        sync.Mutex
	logFileHandle *os.File
)

// Setup configures the global logrus logger. It can be called again after a
// config reload; the most recent call wins.
func Setup(cfg *config.Config) error {
	return SetupTo(os.Stderr, cfg)
}

// SetupTo is Setup with an explicit primary writer.
func SetupTo(out io.Writer, cfg *config.Config) error {
	logMux.Lock()
	defer logMux.Unlock()

	debug := cfg != nil && cfg.Log.Debug

	var formatter log.Formatter = &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	level := log.InfoLevel
	if debug {
		formatter = &log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		}
		level = log.DebugLevel
	}
	log.SetFormatter(formatter)
	log.SetLevel(level)

	writers := []io.Writer{out}

	if logFileHandle != nil {
		_ = logFileHandle.Close()
		logFileHandle = nil
	}

	if cfg != nil && cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFileHandle = file
		writers = append(writers, file)
	}

	log.SetOutput(io.MultiWriter(writers...))
	return nil
}
