package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

const (
	appName              = "imgsearch"
	defaultProbeTimeout  = 10 * time.Second
	defaultBatchSize     = 20
	defaultBackgroundURL = "ws://127.0.0.1:7457/messages"
)

// Config holds runtime settings for the CLI app.
type Config struct {
	DBPath        string
	OptionsPath   string
	LogPath       string
	BackgroundURL string
	ProbeTimeout  time.Duration
	BatchSize     int
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		DBPath:        os.Getenv("IMGSEARCH_DB_PATH"),
		OptionsPath:   os.Getenv("IMGSEARCH_OPTIONS_PATH"),
		LogPath:       os.Getenv("IMGSEARCH_LOG_PATH"),
		BackgroundURL: os.Getenv("IMGSEARCH_BACKGROUND_URL"),
		ProbeTimeout:  defaultProbeTimeout,
		BatchSize:     defaultBatchSize,
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(xdg.DataHome, appName, "results.db")
	}
	if cfg.OptionsPath == "" {
		cfg.OptionsPath = filepath.Join(xdg.ConfigHome, appName, "options.toml")
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join(xdg.StateHome, appName, "imgsearch.log")
	}
	if cfg.BackgroundURL == "" {
		cfg.BackgroundURL = defaultBackgroundURL
	}

	if raw := strings.TrimSpace(os.Getenv("IMGSEARCH_PROBE_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("IMGSEARCH_PROBE_TIMEOUT: %w", err)
		}
		cfg.ProbeTimeout = d
	}
	if raw := strings.TrimSpace(os.Getenv("IMGSEARCH_BATCH_SIZE")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("IMGSEARCH_BATCH_SIZE: %w", err)
		}
		cfg.BatchSize = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("DBPath is required")
	}
	if c.BackgroundURL == "" {
		return errors.New("BackgroundURL is required")
	}
	if !strings.HasPrefix(c.BackgroundURL, "ws://") && !strings.HasPrefix(c.BackgroundURL, "wss://") {
		return fmt.Errorf("BackgroundURL must be a ws:// or wss:// URL: %s", c.BackgroundURL)
	}
	if c.ProbeTimeout < 0 {
		return fmt.Errorf("ProbeTimeout must not be negative: %s", c.ProbeTimeout)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("BatchSize must be positive: %d", c.BatchSize)
	}
	return nil
}
