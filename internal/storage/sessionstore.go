package storage

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/looper/pkg/models"
)

// Storage keys, one document each.
const (
	keySessions = "sessions"
	keySettings = "settings"
	keyHistory  = "history"
	keyState    = "state"
)

const storeVersion = "1.0"

// SessionStoreManager persists sessions, settings, history and playback
// state as YAML documents in a Backend. It satisfies core.SessionRepository.
type SessionStoreManager interface {
	LoadSessions() ([]models.LooperSession, error)
	SaveSessions(sessions []models.LooperSession) error
	LoadSettings() (*models.Settings, error)
	SaveSettings(settings models.Settings) error
	LoadHistory() ([]models.SessionHistoryEntry, error)
	SaveHistory(history []models.SessionHistoryEntry) error
	LoadState() (*models.CurrentState, error)
	SaveState(state models.CurrentState) error
	Info() (models.StorageInfo, error)
	Clear() error
	Backend() Backend
}

type sessionsDocument struct {
	Version  string                 `yaml:"version"`
	Sessions []models.LooperSession `yaml:"sessions"`
}

type historyDocument struct {
	Version string                       `yaml:"version"`
	Entries []models.SessionHistoryEntry `yaml:"entries"`
}

type backendSessionStore struct {
	backend Backend
}

// NewSessionStoreManager creates a SessionStoreManager on top of backend.
func NewSessionStoreManager(backend Backend) SessionStoreManager {
	return &backendSessionStore{backend: backend}
}

func (s *backendSessionStore) Backend() Backend { return s.backend }

// LoadSessions returns the stored sessions. A missing document is treated
// as an empty list.
func (s *backendSessionStore) LoadSessions() ([]models.LooperSession, error) {
	var doc sessionsDocument
	found, err := s.loadYAML(keySessions, &doc)
	if err != nil || !found {
		return nil, err
	}
	for i := range doc.Sessions {
		if doc.Sessions[i].Loops == nil {
			doc.Sessions[i].Loops = []models.LoopSegment{}
		}
	}
	return doc.Sessions, nil
}

func (s *backendSessionStore) SaveSessions(sessions []models.LooperSession) error {
	if sessions == nil {
		sessions = []models.LooperSession{}
	}
	return s.saveYAML(keySessions, sessionsDocument{Version: storeVersion, Sessions: sessions})
}

// LoadSettings returns nil when no settings were ever saved.
func (s *backendSessionStore) LoadSettings() (*models.Settings, error) {
	var settings models.Settings
	found, err := s.loadYAML(keySettings, &settings)
	if err != nil || !found {
		return nil, err
	}
	return &settings, nil
}

func (s *backendSessionStore) SaveSettings(settings models.Settings) error {
	return s.saveYAML(keySettings, settings)
}

func (s *backendSessionStore) LoadHistory() ([]models.SessionHistoryEntry, error) {
	var doc historyDocument
	if _, err := s.loadYAML(keyHistory, &doc); err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

func (s *backendSessionStore) SaveHistory(history []models.SessionHistoryEntry) error {
	if history == nil {
		history = []models.SessionHistoryEntry{}
	}
	return s.saveYAML(keyHistory, historyDocument{Version: storeVersion, Entries: history})
}

// LoadState returns nil when no playback state was ever saved.
func (s *backendSessionStore) LoadState() (*models.CurrentState, error) {
	var state models.CurrentState
	found, err := s.loadYAML(keyState, &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (s *backendSessionStore) SaveState(state models.CurrentState) error {
	return s.saveYAML(keyState, state)
}

// Info reports the backend and the bytes it uses. Item counts are filled
// in by the session manager, which owns the decoded data.
func (s *backendSessionStore) Info() (models.StorageInfo, error) {
	size, err := s.backend.Size()
	if err != nil {
		return models.StorageInfo{}, fmt.Errorf("measuring storage: %w", err)
	}
	return models.StorageInfo{
		Backend:   s.backend.Name(),
		Location:  s.backend.Location(),
		UsedBytes: size,
	}, nil
}

// Clear deletes every document.
func (s *backendSessionStore) Clear() error {
	for _, key := range []string{keySessions, keySettings, keyHistory, keyState} {
		if err := s.backend.Delete(key); err != nil {
			return fmt.Errorf("clearing %s: %w", key, err)
		}
	}
	return nil
}

func (s *backendSessionStore) loadYAML(key string, target any) (bool, error) {
	data, err := s.backend.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil // Missing documents are initialized to zero values.
		}
		return false, fmt.Errorf("loading %s: %w", key, err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return true, nil
}

func (s *backendSessionStore) saveYAML(key string, source any) error {
	data, err := yaml.Marshal(source)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.backend.Put(key, data); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}
