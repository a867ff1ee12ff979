package models

import "time"

// LooperSession binds one video to its loop segments and playback state.
type LooperSession struct {
	ID                  string        `json:"id" yaml:"id"`
	Name                string        `json:"name" yaml:"name"`
	Description         string        `json:"description,omitempty" yaml:"description,omitempty"`
	Tags                []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	VideoID             string        `json:"videoId" yaml:"video_id"`
	VideoTitle          string        `json:"videoTitle" yaml:"video_title"`
	VideoURL            string        `json:"videoUrl" yaml:"video_url"`
	VideoDuration       float64       `json:"videoDuration" yaml:"video_duration"`
	Loops               []LoopSegment `json:"loops" yaml:"loops"`
	GlobalPlaybackSpeed float64       `json:"globalPlaybackSpeed" yaml:"global_playback_speed"`
	CurrentTime         float64       `json:"currentTime" yaml:"current_time"`
	IsActive            bool          `json:"isActive" yaml:"is_active"`
	TotalPlayTime       float64       `json:"totalPlayTime" yaml:"total_play_time"`
	PlayCount           int           `json:"playCount" yaml:"play_count"`
	CreatedAt           time.Time     `json:"createdAt" yaml:"created_at"`
	UpdatedAt           time.Time     `json:"updatedAt" yaml:"updated_at"`
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (s LooperSession) Clone() LooperSession {
	cp := s
	if s.Tags != nil {
		cp.Tags = append([]string(nil), s.Tags...)
	}
	if s.Loops != nil {
		cp.Loops = make([]LoopSegment, len(s.Loops))
		for i, l := range s.Loops {
			cp.Loops[i] = l
			if l.Repetitions != nil {
				r := *l.Repetitions
				cp.Loops[i].Repetitions = &r
			}
			if l.PlaybackSpeed != nil {
				v := *l.PlaybackSpeed
				cp.Loops[i].PlaybackSpeed = &v
			}
		}
	}
	return cp
}

// SessionUpdate is a partial update merged into a session. Nil fields are
// left unchanged.
type SessionUpdate struct {
	Name                *string
	Description         *string
	Tags                []string
	VideoTitle          *string
	VideoURL            *string
	VideoDuration       *float64
	Loops               []LoopSegment
	GlobalPlaybackSpeed *float64
	CurrentTime         *float64
	IsActive            *bool
	TotalPlayTime       *float64
	PlayCount           *int
}

// IsEmpty reports whether the update carries no changes.
func (u SessionUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Tags == nil &&
		u.VideoTitle == nil && u.VideoURL == nil && u.VideoDuration == nil &&
		u.Loops == nil && u.GlobalPlaybackSpeed == nil && u.CurrentTime == nil &&
		u.IsActive == nil && u.TotalPlayTime == nil && u.PlayCount == nil
}

// Apply merges the non-nil fields of u into s.
func (u SessionUpdate) Apply(s *LooperSession) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.Tags != nil {
		s.Tags = append([]string(nil), u.Tags...)
	}
	if u.VideoTitle != nil {
		s.VideoTitle = *u.VideoTitle
	}
	if u.VideoURL != nil {
		s.VideoURL = *u.VideoURL
	}
	if u.VideoDuration != nil {
		s.VideoDuration = *u.VideoDuration
	}
	if u.Loops != nil {
		s.Loops = LooperSession{Loops: u.Loops}.Clone().Loops
	}
	if u.GlobalPlaybackSpeed != nil {
		s.GlobalPlaybackSpeed = *u.GlobalPlaybackSpeed
	}
	if u.CurrentTime != nil {
		s.CurrentTime = *u.CurrentTime
	}
	if u.IsActive != nil {
		s.IsActive = *u.IsActive
	}
	if u.TotalPlayTime != nil {
		s.TotalPlayTime = *u.TotalPlayTime
	}
	if u.PlayCount != nil {
		s.PlayCount = *u.PlayCount
	}
}

// SessionHistoryEntry records when a session was last opened.
type SessionHistoryEntry struct {
	SessionID  string    `json:"sessionId" yaml:"session_id"`
	AccessedAt time.Time `json:"accessedAt" yaml:"accessed_at"`
}

// Settings holds user preferences persisted alongside sessions.
type Settings struct {
	DefaultPlaybackSpeed float64 `json:"defaultPlaybackSpeed" yaml:"default_playback_speed"`
	AutoSave             bool    `json:"autoSave" yaml:"auto_save"`
	MaxHistoryItems      int     `json:"maxHistoryItems" yaml:"max_history_items"`
	ConfirmDelete        bool    `json:"confirmDelete" yaml:"confirm_delete"`
}

// DefaultSettings returns the settings used before any have been saved.
func DefaultSettings() Settings {
	return Settings{
		DefaultPlaybackSpeed: 1.0,
		AutoSave:             true,
		MaxHistoryItems:      10,
		ConfirmDelete:        true,
	}
}

// SettingsUpdate is a partial update to Settings.
type SettingsUpdate struct {
	DefaultPlaybackSpeed *float64
	AutoSave             *bool
	MaxHistoryItems      *int
	ConfirmDelete        *bool
}

// CurrentState is the live playback state of the active session.
type CurrentState struct {
	ActiveSessionID string  `json:"activeSessionId,omitempty" yaml:"active_session_id,omitempty"`
	ActiveLoopID    string  `json:"activeLoopId,omitempty" yaml:"active_loop_id,omitempty"`
	IsPlaying       bool    `json:"isPlaying" yaml:"is_playing"`
	CurrentTime     float64 `json:"currentTime" yaml:"current_time"`
	PlaybackSpeed   float64 `json:"playbackSpeed" yaml:"playback_speed"`
}

// CurrentStateUpdate is a partial update to CurrentState.
type CurrentStateUpdate struct {
	ActiveLoopID  *string
	IsPlaying     *bool
	CurrentTime   *float64
	PlaybackSpeed *float64
}

// StorageInfo describes how much local storage the sessions use.
type StorageInfo struct {
	Backend      string `json:"backend"`
	Location     string `json:"location"`
	UsedBytes    int64  `json:"usedBytes"`
	SessionCount int    `json:"sessionCount"`
	LoopCount    int    `json:"loopCount"`
	HistoryCount int    `json:"historyCount"`
}
