package cli

import (
	"strings"
	"testing"
)

func TestSessionIDCandidates(t *testing.T) {
	newTestEnv(t)
	a := mustCreate(t, "Alpha", "dQw4w9WgXcQ")
	mustCreate(t, "Beta", "9bZkp7q19f0")

	all := sessionIDCandidates("")
	if len(all) != 2 {
		t.Fatalf("candidates = %v", all)
	}
	if all[0] != a.ID+"\tAlpha" {
		t.Errorf("first candidate = %q", all[0])
	}
	if got := sessionIDCandidates(a.ID); len(got) != 1 {
		t.Errorf("prefix candidates = %v", got)
	}
	if got := sessionIDCandidates("nope"); len(got) != 0 {
		t.Errorf("unexpected candidates %v", got)
	}
}

func TestCompleteSpeedTargets(t *testing.T) {
	newTestEnv(t)
	s := mustCreate(t, "Alpha", "dQw4w9WgXcQ")
	l := mustAddLoop(t, s.ID, "Intro", "0", "10")

	got, _ := completeSpeedTargets(speedSetCmd, []string{s.ID}, "")
	if len(got) != 2 || !strings.HasPrefix(got[0], "global") || !strings.HasPrefix(got[1], l.ID) {
		t.Errorf("targets = %v", got)
	}

	got, _ = completeSpeedTargets(speedSetCmd, []string{s.ID}, "loop")
	if len(got) != 1 || !strings.HasPrefix(got[0], l.ID) {
		t.Errorf("loop-prefixed targets = %v", got)
	}

	got, _ = completeSpeedTargets(speedSetCmd, nil, "")
	if len(got) != 1 || !strings.HasPrefix(got[0], s.ID) {
		t.Errorf("first argument targets = %v", got)
	}
}

func TestCompleteSessionThenLoopIDs(t *testing.T) {
	newTestEnv(t)
	s := mustCreate(t, "Alpha", "dQw4w9WgXcQ")
	mustAddLoop(t, s.ID, "Intro", "0", "10")

	if got, _ := completeSessionThenLoopIDs(loopRemoveCmd, []string{s.ID}, ""); len(got) != 1 || !strings.HasSuffix(got[0], "\tIntro") {
		t.Errorf("loop candidates = %v", got)
	}
	if got, _ := completeSessionThenLoopIDs(loopRemoveCmd, []string{"session_missing"}, ""); got != nil {
		t.Errorf("unknown session candidates = %v", got)
	}
	if got, _ := completeSessionThenLoopIDs(loopRemoveCmd, []string{s.ID, "x"}, ""); got != nil {
		t.Errorf("third argument candidates = %v", got)
	}
}

func TestCompletions_NilFacade(t *testing.T) {
	orig := Facade
	defer func() { Facade = orig }()
	Facade = nil
	if got := sessionIDCandidates(""); got != nil {
		t.Errorf("candidates = %v", got)
	}
}
