package core

import (
	"errors"
	"sync"
	"time"

	"github.com/valter-silva-au/looper/pkg/models"
)

var errDiskFull = errors.New("disk full")

// fakeRepo is an in-memory SessionRepository. Setting failSessions makes
// every SaveSessions call fail.
type fakeRepo struct {
	mu           sync.Mutex
	sessions     []models.LooperSession
	settings     *models.Settings
	history      []models.SessionHistoryEntry
	state        *models.CurrentState
	failSessions bool
	saves        int
}

func (r *fakeRepo) LoadSessions() ([]models.LooperSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneSessions(r.sessions), nil
}

func (r *fakeRepo) SaveSessions(sessions []models.LooperSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSessions {
		return errDiskFull
	}
	r.saves++
	r.sessions = cloneSessions(sessions)
	return nil
}

func (r *fakeRepo) LoadSettings() (*models.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings, nil
}

func (r *fakeRepo) SaveSettings(s models.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = &s
	return nil
}

func (r *fakeRepo) LoadHistory() ([]models.SessionHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SessionHistoryEntry(nil), r.history...), nil
}

func (r *fakeRepo) SaveHistory(h []models.SessionHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append([]models.SessionHistoryEntry(nil), h...)
	return nil
}

func (r *fakeRepo) LoadState() (*models.CurrentState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, nil
}

func (r *fakeRepo) SaveState(s models.CurrentState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = &s
	return nil
}

func (r *fakeRepo) Info() (models.StorageInfo, error) {
	return models.StorageInfo{Backend: "memory", Location: "memory"}, nil
}

func (r *fakeRepo) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failSessions = fail
}

// recordingEvents captures logged event types.
type recordingEvents struct {
	mu    sync.Mutex
	types []string
}

func (e *recordingEvents) LogEvent(eventType string, _ map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, eventType)
	return nil
}

func (e *recordingEvents) count(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, t := range e.types {
		if t == eventType {
			n++
		}
	}
	return n
}

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestManager(t interface {
	Helper()
	Fatalf(string, ...any)
}, repo *fakeRepo) SessionManager {
	t.Helper()
	m, err := NewSessionManager(repo, SessionManagerOptions{Now: stepClock()})
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return m
}

func validParams(name string) CreateSessionParams {
	return CreateSessionParams{
		Name:          name,
		VideoID:       "dQw4w9WgXcQ",
		VideoTitle:    "Never Gonna Give You Up",
		VideoDuration: 213,
	}
}

func testLoop(name string, start, end float64) models.LoopSegment {
	return models.LoopSegment{Name: name, StartTime: start, EndTime: end}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
