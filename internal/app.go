// Package internal provides the App struct that wires all components of
// looper together and initializes the CLI layer.
package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/looper/internal/cli"
	"github.com/valter-silva-au/looper/internal/core"
	"github.com/valter-silva-au/looper/internal/logging"
	"github.com/valter-silva-au/looper/internal/observability"
	"github.com/valter-silva-au/looper/internal/storage"
	"github.com/valter-silva-au/looper/pkg/models"
)

// HomeEnv overrides the looper home directory.
const HomeEnv = "LOOPER_HOME"

// App holds all service dependencies for looper.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig
	Logger    *slog.Logger

	// Storage layer
	Backend storage.Backend
	Store   storage.SessionStoreManager

	// Core services
	SessionMgr core.SessionManager
	Speeds     core.SpeedManager
	Facade     core.SessionFacade

	// Observability
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
}

// NewApp creates and wires all components of looper. basePath is the
// directory holding config.yaml, the store and the event log.
func NewApp(basePath string) (*App, error) {
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("creating looper home %s: %w", basePath, err)
	}
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, cfgErr := app.ConfigMgr.LoadGlobalConfig()
	if cfgErr == nil {
		cfgErr = app.ConfigMgr.ValidateConfig(cfg)
	}
	if cfgErr != nil {
		// Fall back to defaults so a broken config.yaml never locks the
		// user out of their sessions.
		cfg = core.DefaultGlobalConfig()
	}
	app.Config = cfg

	// --- Logging ---
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	app.Logger = logger
	if cfgErr != nil {
		logger.Warn("config.yaml ignored, using defaults", "error", cfgErr)
	}

	// --- Storage layer ---
	app.Backend, err = storage.Open(cfg.StorageBackend, basePath, cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.StorageBackend, err)
	}
	app.Store = storage.NewSessionStoreManager(app.Backend)

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, observability.EventLogFileName))
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		logger.Warn("event log disabled", "error", err)
		app.EventLog = nil
	}
	var evtAdapter core.EventLogger
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
		evtAdapter = &eventLogAdapter{log: app.EventLog}
	}

	// --- Core services ---
	settings := models.DefaultSettings()
	settings.DefaultPlaybackSpeed = cfg.DefaultPlaybackSpeed
	settings.MaxHistoryItems = cfg.HistoryMaxItems
	app.SessionMgr, err = core.NewSessionManager(app.Store, core.SessionManagerOptions{
		Events:   evtAdapter,
		Logger:   logger,
		Settings: &settings,
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("loading sessions: %w", err)
	}
	app.Speeds = core.NewSpeedManager()
	app.Facade = core.NewSessionFacade(app.SessionMgr, core.FacadeOptions{
		Speeds:        app.Speeds,
		Events:        evtAdapter,
		Logger:        logger,
		MaxImportSize: cfg.ImportMaxFileSize,
	})

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Logger = logger
	cli.SessionMgr = app.SessionMgr
	cli.Facade = app.Facade
	cli.EventLog = app.EventLog
	cli.MetricsCalc = app.MetricsCalc
	backend := app.Backend
	cli.OpenWatcher = func() (*storage.Watcher, error) {
		return storage.NewWatcher(backend, storage.DefaultDebounce)
	}

	logger.Debug("looper initialized", "home", basePath, "backend", app.Backend.Name())
	return app, nil
}

// Close releases the event log file handle and the storage backend. It is
// safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	var firstErr error
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil {
			firstErr = err
		}
	}
	if a.Backend != nil {
		if err := a.Backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ResolveBasePath determines the looper home directory. LOOPER_HOME wins,
// then ~/.looper, then .looper under the current directory when no home
// directory is known.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".looper")
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ".looper"
	}
	return filepath.Join(cwd, ".looper")
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   "INFO",
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
