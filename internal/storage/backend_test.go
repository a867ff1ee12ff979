package storage

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"
)

// backendFactories runs the same contract tests against every backend.
var backendFactories = map[string]func(t *testing.T) Backend{
	BackendFile: func(t *testing.T) Backend {
		b, err := NewFileBackend(filepath.Join(t.TempDir(), "store"))
		if err != nil {
			t.Fatalf("NewFileBackend: %v", err)
		}
		return b
	},
	BackendSQLite: func(t *testing.T) Backend {
		b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "looper.db"))
		if err != nil {
			t.Fatalf("NewSQLiteBackend: %v", err)
		}
		return b
	},
}

func TestBackend_GetMissing(t *testing.T) {
	for name, newBackend := range backendFactories {
		t.Run(name, func(t *testing.T) {
			b := newBackend(t)
			defer func() { _ = b.Close() }()

			if _, err := b.Get("sessions"); !errors.Is(err, ErrNotFound) {
				t.Errorf("error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestBackend_PutGetDelete(t *testing.T) {
	for name, newBackend := range backendFactories {
		t.Run(name, func(t *testing.T) {
			b := newBackend(t)
			defer func() { _ = b.Close() }()

			if err := b.Put("sessions", []byte("first")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := b.Put("sessions", []byte("second")); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			if err := b.Put("state", []byte("x")); err != nil {
				t.Fatalf("Put: %v", err)
			}

			got, err := b.Get("sessions")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != "second" {
				t.Errorf("Get = %q, want second", got)
			}

			keys, err := b.Keys()
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if !slices.Equal(keys, []string{"sessions", "state"}) {
				t.Errorf("Keys = %v", keys)
			}

			size, err := b.Size()
			if err != nil {
				t.Fatalf("Size: %v", err)
			}
			if size != int64(len("second")+len("x")) {
				t.Errorf("Size = %d, want 7", size)
			}

			if err := b.Delete("sessions"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := b.Delete("sessions"); err != nil {
				t.Errorf("deleting a missing key should succeed: %v", err)
			}
			if _, err := b.Get("sessions"); !errors.Is(err, ErrNotFound) {
				t.Errorf("error after delete = %v, want ErrNotFound", err)
			}
			if b.Name() != name {
				t.Errorf("Name = %q, want %q", b.Name(), name)
			}
		})
	}
}

func TestBackend_RejectsInvalidKeys(t *testing.T) {
	for name, newBackend := range backendFactories {
		t.Run(name, func(t *testing.T) {
			b := newBackend(t)
			defer func() { _ = b.Close() }()

			for _, key := range []string{"", "../escape", "Upper", "with space"} {
				if err := b.Put(key, []byte("x")); err == nil {
					t.Errorf("Put(%q) succeeded", key)
				}
			}
		})
	}
}

func TestFileBackend_PersistsAcrossInstances(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	b1, err := NewFileBackend(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := b1.Put("settings", []byte("auto_save: true\n")); err != nil {
		t.Fatal(err)
	}
	_ = b1.Close()

	b2, err := NewFileBackend(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = b2.Close() }()
	got, err := b2.Get("settings")
	if err != nil || string(got) != "auto_save: true\n" {
		t.Errorf("Get = %q, %v", got, err)
	}
}

func TestOpen(t *testing.T) {
	base := t.TempDir()

	fb, err := Open("", base, "")
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	defer func() { _ = fb.Close() }()
	if fb.Name() != BackendFile || fb.Location() != filepath.Join(base, "store") {
		t.Errorf("file backend = %s at %s", fb.Name(), fb.Location())
	}

	sb, err := Open(BackendSQLite, base, "")
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	defer func() { _ = sb.Close() }()
	if sb.Location() != filepath.Join(base, "looper.db") {
		t.Errorf("sqlite location = %s", sb.Location())
	}

	if _, err := Open("postgres", base, ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}
