package core

import (
	"errors"
	"testing"

	"github.com/valter-silva-au/looper/pkg/models"
)

func TestSpeedManager_GlobalSpeedRange(t *testing.T) {
	sm := NewSpeedManager()
	if sm.GlobalSpeed() != 1.0 {
		t.Fatalf("initial global speed = %v, want 1.0", sm.GlobalSpeed())
	}

	for _, s := range []float64{0.25, 1.5, 2.0} {
		if err := sm.SetGlobalSpeed(s); err != nil {
			t.Errorf("SetGlobalSpeed(%v): unexpected error: %v", s, err)
		}
	}
	for _, s := range []float64{0.2, 2.01, -1} {
		if err := sm.SetGlobalSpeed(s); !errors.Is(err, ErrSpeedOutOfRange) {
			t.Errorf("SetGlobalSpeed(%v) error = %v, want ErrSpeedOutOfRange", s, err)
		}
	}
	if sm.GlobalSpeed() != 2.0 {
		t.Errorf("rejected speeds changed state: global = %v", sm.GlobalSpeed())
	}
}

func TestSpeedManager_LoopSpeedsFallBackToGlobal(t *testing.T) {
	sm := NewSpeedManager()
	_ = sm.SetGlobalSpeed(0.75)
	if err := sm.SetLoopSpeed("l1", 1.5); err != nil {
		t.Fatalf("SetLoopSpeed: %v", err)
	}

	if got := sm.LoopSpeed("l1"); got != 1.5 {
		t.Errorf("LoopSpeed(l1) = %v, want 1.5", got)
	}
	if got := sm.LoopSpeed("l2"); got != 0.75 {
		t.Errorf("LoopSpeed(l2) = %v, want global 0.75", got)
	}

	sm.SetActiveLoop("l1")
	if got := sm.ActiveLoopSpeed(); got != 1.5 {
		t.Errorf("ActiveLoopSpeed = %v, want 1.5", got)
	}
	sm.SetActiveLoop("")
	if got := sm.ActiveLoopSpeed(); got != 0.75 {
		t.Errorf("ActiveLoopSpeed with no active loop = %v, want 0.75", got)
	}

	sm.ClearLoopSpeed("l1")
	if got := sm.LoopSpeed("l1"); got != 0.75 {
		t.Errorf("LoopSpeed after clear = %v, want 0.75", got)
	}
}

func TestSpeedManager_RejectsInvalidLoopSpeed(t *testing.T) {
	sm := NewSpeedManager()
	if err := sm.SetLoopSpeed("l1", 4); !errors.Is(err, ErrSpeedOutOfRange) {
		t.Errorf("error = %v, want ErrSpeedOutOfRange", err)
	}
	if err := sm.SetLoopSpeed("", 1); err == nil {
		t.Error("expected error for empty loop id")
	}
	if len(sm.LoopSpeeds()) != 0 {
		t.Errorf("rejected speeds were stored: %v", sm.LoopSpeeds())
	}
}

func TestSpeedManager_ResetAllSpeeds(t *testing.T) {
	sm := NewSpeedManager()
	_ = sm.SetGlobalSpeed(1.75)
	_ = sm.SetLoopSpeed("l1", 0.5)
	sm.SetActiveLoop("l1")

	sm.ResetAllSpeeds()

	if sm.GlobalSpeed() != 1.0 || len(sm.LoopSpeeds()) != 0 || sm.ActiveLoopID() != "" {
		t.Errorf("reset left state: global=%v loops=%v active=%q",
			sm.GlobalSpeed(), sm.LoopSpeeds(), sm.ActiveLoopID())
	}
}

func TestSpeedManager_LoadAndApplySession(t *testing.T) {
	session := models.LooperSession{
		GlobalPlaybackSpeed: 0.5,
		Loops: []models.LoopSegment{
			{ID: "a", Name: "a", EndTime: 5, PlaybackSpeed: floatPtr(1.25), IsActive: true},
			{ID: "b", Name: "b", EndTime: 5},
			{ID: "c", Name: "c", EndTime: 5, PlaybackSpeed: floatPtr(9)},
		},
	}

	sm := NewSpeedManager()
	_ = sm.SetLoopSpeed("stale", 2)
	sm.LoadFromSession(session)

	if sm.GlobalSpeed() != 0.5 {
		t.Errorf("global = %v, want 0.5", sm.GlobalSpeed())
	}
	speeds := sm.LoopSpeeds()
	if len(speeds) != 1 || speeds["a"] != 1.25 {
		t.Errorf("loop speeds = %v, want only a=1.25", speeds)
	}
	if sm.ActiveLoopID() != "a" {
		t.Errorf("active loop = %q, want a", sm.ActiveLoopID())
	}

	_ = sm.SetLoopSpeed("b", 1.5)
	sm.ClearLoopSpeed("a")
	sm.ApplyToSession(&session)

	if session.Loops[0].PlaybackSpeed != nil {
		t.Errorf("loop a speed = %v, want nil", *session.Loops[0].PlaybackSpeed)
	}
	if session.Loops[1].PlaybackSpeed == nil || *session.Loops[1].PlaybackSpeed != 1.5 {
		t.Errorf("loop b speed = %v, want 1.5", session.Loops[1].PlaybackSpeed)
	}
	if !session.Loops[0].IsActive || session.Loops[1].IsActive {
		t.Error("active flag not written back")
	}
}
