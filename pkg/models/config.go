package models

// GlobalConfig holds settings read from config.yaml in the looper home via Viper.
type GlobalConfig struct {
	StorageBackend       string  `yaml:"storage_backend" mapstructure:"storage_backend"`
	StoragePath          string  `yaml:"storage_path" mapstructure:"storage_path"`
	LogLevel             string  `yaml:"log_level" mapstructure:"log_level"`
	LogFormat            string  `yaml:"log_format" mapstructure:"log_format"`
	ImportMaxFileSize    int64   `yaml:"import_max_file_size" mapstructure:"import_max_file_size"`
	ExportDir            string  `yaml:"export_dir" mapstructure:"export_dir"`
	HistoryMaxItems      int     `yaml:"history_max_items" mapstructure:"history_max_items"`
	DefaultPlaybackSpeed float64 `yaml:"default_playback_speed" mapstructure:"default_playback_speed"`
}
