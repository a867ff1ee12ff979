package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestWatcher_NotifiesOnExternalWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = b.Close() }()

	w, err := NewWatcher(b, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start()
	defer func() { _ = w.Stop() }()

	// A second backend on the same directory plays the other process.
	other, err := NewFileBackend(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = other.Close() }()
	for i := 0; i < 3; i++ {
		if err := other.Put("sessions", []byte("sessions: []\n")); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-w.Changes:
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification received")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(b, 0)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start()
	if err := w.Stop(); err != nil {
		t.Errorf("first Stop: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/s/sessions.yaml", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/s/sessions.yaml", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/s/.lock", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/s/.sessions-123.tmp", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/s/looper.db-wal", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/s/config.yml", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		if got := relevant(tt.event); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}
