package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
)

// ErrNotFound is returned by Backend.Get when a key has never been written.
var ErrNotFound = errors.New("key not found")

var validKey = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Backend is a small key/value store holding encoded documents.
type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
	// Size returns the number of bytes used on disk.
	Size() (int64, error)
	Name() string
	Location() string
	// WatchPath is the path a watcher should observe for external changes.
	WatchPath() string
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates the backend named kind rooted at basePath. path overrides the
// default location (a directory for file, a database file for sqlite).
func Open(kind, basePath, path string) (Backend, error) {
	switch kind {
	case BackendFile, "":
		if path == "" {
			path = filepath.Join(basePath, "store")
		}
		return NewFileBackend(path)
	case BackendSQLite:
		if path == "" {
			path = filepath.Join(basePath, "looper.db")
		}
		return NewSQLiteBackend(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
