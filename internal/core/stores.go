package core

import "github.com/valter-silva-au/looper/pkg/models"

// SessionRepository persists the session manager's state. It is defined
// here so core does not import the storage package.
type SessionRepository interface {
	LoadSessions() ([]models.LooperSession, error)
	SaveSessions(sessions []models.LooperSession) error
	LoadSettings() (*models.Settings, error)
	SaveSettings(settings models.Settings) error
	LoadHistory() ([]models.SessionHistoryEntry, error)
	SaveHistory(history []models.SessionHistoryEntry) error
	LoadState() (*models.CurrentState, error)
	SaveState(state models.CurrentState) error
	Info() (models.StorageInfo, error)
}
