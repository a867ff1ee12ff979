package core

import (
	"errors"
	"strings"
)

// User-facing failures returned by the session manager and facade.
var (
	ErrSessionNotFound      = errors.New("Session introuvable")
	ErrNoCurrentSession     = errors.New("Aucune session en cours")
	ErrDuplicateSessionName = errors.New("Une session avec ce nom existe déjà")
	ErrLoopNotFound         = errors.New("Boucle introuvable")
	ErrInvalidExtension     = errors.New("Le fichier doit être au format JSON (.json)")
	ErrFileTooLarge         = errors.New("Le fichier est trop volumineux")
	ErrInvalidJSON          = errors.New("Fichier JSON invalide")
	ErrUnsupportedExport    = errors.New("Type d'export non supporté")
	ErrEmptyImport          = errors.New("Aucune session à importer")
	ErrUnrecognizedFormat   = errors.New("Format de fichier non reconnu")
)

// ValidationError carries every rule a value violated.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

// validationErr returns nil when errs is empty.
func validationErr(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}
