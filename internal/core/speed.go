package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/valter-silva-au/looper/pkg/models"
)

// ErrSpeedOutOfRange is returned when a playback speed falls outside
// [MinPlaybackSpeed, MaxPlaybackSpeed].
var ErrSpeedOutOfRange = errors.New(speedRangeMessage())

// DefaultPlaybackSpeed is the global speed after a reset.
const DefaultPlaybackSpeed = 1.0

func speedInRange(speed float64) bool {
	return speed >= MinPlaybackSpeed && speed <= MaxPlaybackSpeed
}

func speedRangeMessage() string {
	return fmt.Sprintf("La vitesse doit être comprise entre %g et %g", MinPlaybackSpeed, MaxPlaybackSpeed)
}

// SpeedManager tracks the global playback speed and per-loop overrides.
type SpeedManager interface {
	GlobalSpeed() float64
	SetGlobalSpeed(speed float64) error
	LoopSpeed(loopID string) float64
	SetLoopSpeed(loopID string, speed float64) error
	ClearLoopSpeed(loopID string)
	LoopSpeeds() map[string]float64
	ActiveLoopID() string
	SetActiveLoop(loopID string)
	ActiveLoopSpeed() float64
	ResetAllSpeeds()
	LoadFromSession(session models.LooperSession)
	ApplyToSession(session *models.LooperSession)
}

type speedManager struct {
	mu         sync.Mutex
	global     float64
	loopSpeeds map[string]float64
	activeLoop string
}

// NewSpeedManager creates a SpeedManager with the global speed at 1.0.
func NewSpeedManager() SpeedManager {
	return &speedManager{
		global:     DefaultPlaybackSpeed,
		loopSpeeds: make(map[string]float64),
	}
}

func (m *speedManager) GlobalSpeed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.global
}

// SetGlobalSpeed changes the global speed. Out of range values are rejected
// and leave the state untouched.
func (m *speedManager) SetGlobalSpeed(speed float64) error {
	if !speedInRange(speed) {
		return ErrSpeedOutOfRange
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global = speed
	return nil
}

// LoopSpeed returns the speed mapped to loopID, or the global speed when
// the loop has no mapping.
func (m *speedManager) LoopSpeed(loopID string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loopSpeedLocked(loopID)
}

func (m *speedManager) loopSpeedLocked(loopID string) float64 {
	if s, ok := m.loopSpeeds[loopID]; ok {
		return s
	}
	return m.global
}

func (m *speedManager) SetLoopSpeed(loopID string, speed float64) error {
	if loopID == "" {
		return fmt.Errorf("identifiant de boucle requis")
	}
	if !speedInRange(speed) {
		return ErrSpeedOutOfRange
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loopSpeeds[loopID] = speed
	return nil
}

func (m *speedManager) ClearLoopSpeed(loopID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.loopSpeeds, loopID)
}

// LoopSpeeds returns a copy of the per-loop mapping.
func (m *speedManager) LoopSpeeds() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.loopSpeeds))
	for k, v := range m.loopSpeeds {
		out[k] = v
	}
	return out
}

func (m *speedManager) ActiveLoopID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLoop
}

// SetActiveLoop marks loopID as the playing loop. An empty ID clears it.
func (m *speedManager) SetActiveLoop(loopID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeLoop = loopID
}

// ActiveLoopSpeed resolves the speed of the active loop, falling back to
// the global speed.
func (m *speedManager) ActiveLoopSpeed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeLoop == "" {
		return m.global
	}
	return m.loopSpeedLocked(m.activeLoop)
}

// ResetAllSpeeds clears every mapping, the active loop, and sets the
// global speed back to 1.0.
func (m *speedManager) ResetAllSpeeds() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global = DefaultPlaybackSpeed
	m.loopSpeeds = make(map[string]float64)
	m.activeLoop = ""
}

// LoadFromSession resets the manager and loads the session's global speed
// and loop speeds. Out of range values are skipped.
func (m *speedManager) LoadFromSession(session models.LooperSession) {
	m.ResetAllSpeeds()
	if speedInRange(session.GlobalPlaybackSpeed) {
		_ = m.SetGlobalSpeed(session.GlobalPlaybackSpeed)
	}
	for _, l := range session.Loops {
		if l.PlaybackSpeed != nil {
			_ = m.SetLoopSpeed(l.ID, *l.PlaybackSpeed)
		}
		if l.IsActive {
			m.SetActiveLoop(l.ID)
		}
	}
}

// ApplyToSession writes the current speeds back onto the session and its loops.
func (m *speedManager) ApplyToSession(session *models.LooperSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.GlobalPlaybackSpeed = m.global
	for i := range session.Loops {
		id := session.Loops[i].ID
		if s, ok := m.loopSpeeds[id]; ok {
			v := s
			session.Loops[i].PlaybackSpeed = &v
		} else {
			session.Loops[i].PlaybackSpeed = nil
		}
		session.Loops[i].IsActive = id == m.activeLoop && id != ""
	}
}
