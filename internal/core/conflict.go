package core

import (
	"fmt"

	"github.com/valter-silva-au/looper/pkg/models"
)

// ConflictType categorises the kind of conflict detected.
type ConflictType string

const (
	ConflictName    ConflictType = "name"
	ConflictVideoID ConflictType = "video_id"
)

// Severity indicates how urgent a conflict is.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// ConflictContext provides the information needed to check for conflicts.
type ConflictContext struct {
	Candidates []models.LooperSession
}

// Conflict is a collision between an import candidate and an existing
// session. Conflicts are warnings; they never block an import.
type Conflict struct {
	Type           ConflictType
	CandidateName  string
	ExistingID     string
	ExistingName   string
	Description    string
	Recommendation string
	Severity       Severity
}

// ConflictDetector checks import candidates against the existing sessions.
type ConflictDetector interface {
	CheckForConflicts(ctx ConflictContext) []Conflict
}

// conflictDetector compares candidates with the sessions returned by existing.
type conflictDetector struct {
	existing func() []models.LooperSession
}

// NewConflictDetector creates a ConflictDetector that reads the current
// sessions from existing on every check.
func NewConflictDetector(existing func() []models.LooperSession) ConflictDetector {
	return &conflictDetector{existing: existing}
}

// CheckForConflicts reports name collisions (ignoring case) and video ID
// collisions. A candidate yields at most one conflict of each type.
func (cd *conflictDetector) CheckForConflicts(ctx ConflictContext) []Conflict {
	existing := cd.existing()

	byName := make(map[string]models.LooperSession, len(existing))
	byVideo := make(map[string]models.LooperSession, len(existing))
	for _, s := range existing {
		if _, ok := byName[foldKey(s.Name)]; !ok {
			byName[foldKey(s.Name)] = s
		}
		if _, ok := byVideo[s.VideoID]; !ok && s.VideoID != "" {
			byVideo[s.VideoID] = s
		}
	}

	var conflicts []Conflict
	for _, c := range ctx.Candidates {
		if s, ok := byName[foldKey(c.Name)]; ok {
			conflicts = append(conflicts, Conflict{
				Type:           ConflictName,
				CandidateName:  c.Name,
				ExistingID:     s.ID,
				ExistingName:   s.Name,
				Description:    fmt.Sprintf("Une session nommée %q existe déjà", s.Name),
				Recommendation: "La session sera importée sous le même nom ; renommez-la ensuite si nécessaire.",
				Severity:       SeverityMedium,
			})
		}
		if s, ok := byVideo[c.VideoID]; ok {
			conflicts = append(conflicts, Conflict{
				Type:           ConflictVideoID,
				CandidateName:  c.Name,
				ExistingID:     s.ID,
				ExistingName:   s.Name,
				Description:    fmt.Sprintf("La vidéo %s est déjà utilisée par la session %q", c.VideoID, s.Name),
				Recommendation: "Les deux sessions coexisteront ; vérifiez les boucles en double.",
				Severity:       SeverityLow,
			})
		}
	}
	return conflicts
}
