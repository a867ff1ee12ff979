package models

import "time"

// LoopSegment is a named time interval within a video, replayed in a loop.
// Times are expressed in seconds from the start of the video.
type LoopSegment struct {
	ID            string    `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	StartTime     float64   `json:"startTime" yaml:"start_time"`
	EndTime       float64   `json:"endTime" yaml:"end_time"`
	Color         string    `json:"color,omitempty" yaml:"color,omitempty"`
	Repetitions   *int      `json:"repetitions,omitempty" yaml:"repetitions,omitempty"`
	PlaybackSpeed *float64  `json:"playbackSpeed,omitempty" yaml:"playback_speed,omitempty"`
	PlayCount     int       `json:"playCount" yaml:"play_count"`
	IsActive      bool      `json:"isActive" yaml:"is_active"`
	CreatedAt     time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" yaml:"updated_at"`
}

// Duration returns the length of the segment in seconds.
func (l LoopSegment) Duration() float64 {
	return l.EndTime - l.StartTime
}
