package core

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/valter-silva-au/looper/internal/timeutil"
	"github.com/valter-silva-au/looper/pkg/models"
)

// Loop constraints.
const (
	MaxLoopNameLength = 50
	MinPlaybackSpeed  = 0.25
	MaxPlaybackSpeed  = 2.0
	DefaultLoopName   = "Nouvelle boucle"
	defaultLoopEnd    = 30.0
)

// loopPalette is the set of colors assigned to new loops.
var loopPalette = []string{
	"#ef4444", "#f97316", "#f59e0b", "#84cc16", "#22c55e", "#14b8a6",
	"#06b6d4", "#3b82f6", "#6366f1", "#8b5cf6", "#d946ef", "#ec4899",
}

// GenerateRandomColor picks a color from the loop palette.
func GenerateRandomColor() string {
	return loopPalette[rand.IntN(len(loopPalette))]
}

// NewLoopID returns a fresh loop identifier.
func NewLoopID() string {
	return "loop_" + uuid.NewString()
}

// GetDuration returns the loop length in seconds.
func GetDuration(loop models.LoopSegment) float64 {
	return loop.EndTime - loop.StartTime
}

// FormatDuration renders the loop length as M:SS.
func FormatDuration(loop models.LoopSegment) string {
	return timeutil.FormatSecondsToMMSS(GetDuration(loop), false)
}

// DoLoopsOverlap reports whether two loops share any time. Loops that only
// touch at an endpoint do not overlap.
func DoLoopsOverlap(a, b models.LoopSegment) bool {
	return !(a.EndTime <= b.StartTime || b.EndTime <= a.StartTime)
}

// FindOverlappingLoops returns the loops in existing that overlap candidate,
// ignoring the entry that shares candidate's ID.
func FindOverlappingLoops(existing []models.LoopSegment, candidate models.LoopSegment) []models.LoopSegment {
	var overlaps []models.LoopSegment
	for _, l := range existing {
		if candidate.ID != "" && l.ID == candidate.ID {
			continue
		}
		if DoLoopsOverlap(l, candidate) {
			overlaps = append(overlaps, l)
		}
	}
	return overlaps
}

// SortLoopsByStart orders loops by start time, then by end time.
func SortLoopsByStart(loops []models.LoopSegment) {
	sort.SliceStable(loops, func(i, j int) bool {
		if loops[i].StartTime != loops[j].StartTime {
			return loops[i].StartTime < loops[j].StartTime
		}
		return loops[i].EndTime < loops[j].EndTime
	})
}

// ValidateLoop checks every loop rule and returns all violations together.
func ValidateLoop(loop models.LoopSegment) timeutil.ValidationResult {
	var errs []string

	name := strings.TrimSpace(loop.Name)
	if name == "" {
		errs = append(errs, "Le nom est requis")
	} else if utf8.RuneCountInString(name) > MaxLoopNameLength {
		errs = append(errs, fmt.Sprintf("Le nom ne peut pas dépasser %d caractères", MaxLoopNameLength))
	}

	if loop.StartTime < 0 {
		errs = append(errs, "Le temps de début doit être positif")
	}
	if loop.EndTime < 0 {
		errs = append(errs, "Le temps de fin doit être positif")
	}
	if loop.EndTime <= loop.StartTime {
		errs = append(errs, "Le temps de fin doit être supérieur au temps de début")
	}
	if loop.EndTime-loop.StartTime < timeutil.MinLoopDuration {
		errs = append(errs, "La durée minimale est de 1 seconde")
	}

	if loop.Repetitions != nil && *loop.Repetitions < 0 {
		errs = append(errs, "Le nombre de répétitions doit être positif")
	}
	if loop.PlaybackSpeed != nil && !speedInRange(*loop.PlaybackSpeed) {
		errs = append(errs, speedRangeMessage())
	}

	return timeutil.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateLoopAgainstVideo returns soft warnings for a loop that runs past
// the end of the video. A non-positive duration means the length is unknown.
func ValidateLoopAgainstVideo(loop models.LoopSegment, videoDuration float64) []string {
	if videoDuration <= 0 {
		return nil
	}
	var warnings []string
	if loop.StartTime > videoDuration {
		warnings = append(warnings, fmt.Sprintf("La boucle %q commence après la fin de la vidéo (%s)",
			loop.Name, timeutil.FormatSecondsToMMSS(videoDuration, false)))
	} else if loop.EndTime > videoDuration {
		warnings = append(warnings, fmt.Sprintf("La boucle %q dépasse la fin de la vidéo (%s)",
			loop.Name, timeutil.FormatSecondsToMMSS(videoDuration, false)))
	}
	return warnings
}

// LoopOverrides replaces fields of the default loop. Nil fields keep the default.
type LoopOverrides struct {
	ID            *string
	Name          *string
	StartTime     *float64
	EndTime       *float64
	Color         *string
	Repetitions   *int
	PlaybackSpeed *float64
	IsActive      *bool
}

// CreateDefaultLoop builds a new loop with default values, then applies
// overrides. Overrides always win over defaults.
func CreateDefaultLoop(overrides LoopOverrides) models.LoopSegment {
	now := time.Now().UTC()
	reps := 1
	loop := models.LoopSegment{
		ID:          NewLoopID(),
		Name:        DefaultLoopName,
		StartTime:   0,
		EndTime:     defaultLoopEnd,
		Color:       GenerateRandomColor(),
		Repetitions: &reps,
		IsActive:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if overrides.ID != nil {
		loop.ID = *overrides.ID
	}
	if overrides.Name != nil {
		loop.Name = *overrides.Name
	}
	if overrides.StartTime != nil {
		loop.StartTime = *overrides.StartTime
	}
	if overrides.EndTime != nil {
		loop.EndTime = *overrides.EndTime
	}
	if overrides.Color != nil {
		loop.Color = *overrides.Color
	}
	if overrides.Repetitions != nil {
		r := *overrides.Repetitions
		loop.Repetitions = &r
	}
	if overrides.PlaybackSpeed != nil {
		s := *overrides.PlaybackSpeed
		loop.PlaybackSpeed = &s
	}
	if overrides.IsActive != nil {
		loop.IsActive = *overrides.IsActive
	}
	return loop
}
