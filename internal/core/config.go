// Package core contains the business logic for looper: loop and session
// validation, the session manager and facade, playback speeds, the
// import/export pipeline, and configuration loading.
package core

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/valter-silva-au/looper/pkg/models"
)

// Storage backends accepted in config.yaml.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var validLogFormats = map[string]bool{"auto": true, "console": true, "json": true}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// ConfigurationManager loads and validates config.yaml from the looper home.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	// basePath is the directory where config.yaml resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// config.yaml from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		StorageBackend:       BackendFile,
		StoragePath:          "",
		LogLevel:             "info",
		LogFormat:            "auto",
		ImportMaxFileSize:    DefaultMaxImportSize,
		ExportDir:            ".",
		HistoryMaxItems:      10,
		DefaultPlaybackSpeed: DefaultPlaybackSpeed,
	}
}

// LoadGlobalConfig reads config.yaml from the base path using Viper.
// If the file does not exist, defaults are returned. Environment variables
// prefixed with LOOPER_ override file values (LOOPER_LOG_LEVEL, ...).
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("looper")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("storage.backend", cfg.StorageBackend)
	v.SetDefault("storage.path", cfg.StoragePath)
	v.SetDefault("log.level", cfg.LogLevel)
	v.SetDefault("log.format", cfg.LogFormat)
	v.SetDefault("import.max_file_size", cfg.ImportMaxFileSize)
	v.SetDefault("export.dir", cfg.ExportDir)
	v.SetDefault("history.max_items", cfg.HistoryMaxItems)
	v.SetDefault("playback.default_speed", cfg.DefaultPlaybackSpeed)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.yaml: %w", err)
		}
	}

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(v.GetString("storage.backend")))
	cfg.StoragePath = v.GetString("storage.path")
	cfg.LogLevel = strings.ToLower(v.GetString("log.level"))
	cfg.LogFormat = strings.ToLower(v.GetString("log.format"))
	cfg.ImportMaxFileSize = v.GetInt64("import.max_file_size")
	cfg.ExportDir = v.GetString("export.dir")
	cfg.HistoryMaxItems = v.GetInt("history.max_items")
	cfg.DefaultPlaybackSpeed = v.GetFloat64("playback.default_speed")

	return cfg, nil
}

// ValidateConfig reports every invalid value in cfg in a single error.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string
	switch cfg.StorageBackend {
	case BackendFile, BackendSQLite:
	default:
		errs = append(errs, fmt.Sprintf("storage.backend must be %q or %q, got %q", BackendFile, BackendSQLite, cfg.StorageBackend))
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", cfg.LogLevel))
	}
	if !validLogFormats[cfg.LogFormat] {
		errs = append(errs, fmt.Sprintf("log.format %q is not one of auto, console, json", cfg.LogFormat))
	}
	if cfg.ImportMaxFileSize <= 0 {
		errs = append(errs, fmt.Sprintf("import.max_file_size must be positive, got %d", cfg.ImportMaxFileSize))
	}
	if cfg.HistoryMaxItems < 1 || cfg.HistoryMaxItems > maxStoredHistoryItems {
		errs = append(errs, fmt.Sprintf("history.max_items must be between 1 and %d, got %d", maxStoredHistoryItems, cfg.HistoryMaxItems))
	}
	if !speedInRange(cfg.DefaultPlaybackSpeed) {
		errs = append(errs, fmt.Sprintf("playback.default_speed must be between %g and %g, got %g", MinPlaybackSpeed, MaxPlaybackSpeed, cfg.DefaultPlaybackSpeed))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
