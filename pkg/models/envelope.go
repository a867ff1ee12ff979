package models

import "time"

// ExportType discriminates the shape of an export envelope.
type ExportType string

const (
	ExportSingleSession    ExportType = "single-session"
	ExportMultipleSessions ExportType = "multiple-sessions"
)

// ExportVersion is written into every envelope produced by looper.
const ExportVersion = "1.0"

// ExportEnvelope is the versioned JSON document written by exports.
type ExportEnvelope struct {
	ExportedAt    time.Time       `json:"exportedAt"`
	Version       string          `json:"version"`
	Type          ExportType      `json:"type"`
	Session       *LooperSession  `json:"session,omitempty"`
	Sessions      []LooperSession `json:"sessions,omitempty"`
	SessionsCount int             `json:"sessionsCount,omitempty"`
}
