package cli

import (
	"errors"
	"log/slog"

	"github.com/valter-silva-au/looper/internal/core"
	"github.com/valter-silva-au/looper/internal/logging"
	"github.com/valter-silva-au/looper/internal/observability"
	"github.com/valter-silva-au/looper/internal/storage"
	"github.com/valter-silva-au/looper/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath   string
	Config     *models.GlobalConfig
	Logger     *slog.Logger
	SessionMgr core.SessionManager
	Facade     core.SessionFacade
)

// Observability service instances. Both are nil when the event log could
// not be opened.
var (
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
)

// OpenWatcher starts watching the session store for changes made by other
// processes. Nil disables live refresh in the picker.
var OpenWatcher func() (*storage.Watcher, error)

var errNotInitialized = errors.New("session services not initialized")

func requireFacade() error {
	if Facade == nil || SessionMgr == nil {
		return errNotInitialized
	}
	return nil
}

func logger() *slog.Logger {
	if Logger == nil {
		return logging.Discard()
	}
	return Logger
}
