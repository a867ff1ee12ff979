package core

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/valter-silva-au/looper/internal/timeutil"
	"github.com/valter-silva-au/looper/pkg/models"
)

// maxMutationLog bounds the number of mutations kept for inspection.
const maxMutationLog = 100

// FacadeState is a snapshot of the UI-facing session state.
type FacadeState struct {
	Loading          bool
	CurrentSession   *models.LooperSession
	Sessions         []models.LooperSession
	FilteredSessions []models.LooperSession
	SearchQuery      string
	SelectedVideoID  string
}

// Mutation records one change applied to the facade state.
type Mutation struct {
	Seq       int
	Action    string
	SessionID string
	At        time.Time
}

// StateChange is delivered to subscribers after every mutation.
type StateChange struct {
	Mutation Mutation
	State    FacadeState
}

// LoopResult is returned by loop edits. Warnings never block the edit.
type LoopResult struct {
	Loop     models.LoopSegment
	Warnings []string
}

// LoopEdit is a partial update to a loop. Nil fields are left unchanged.
type LoopEdit struct {
	Name          *string
	StartTime     *float64
	EndTime       *float64
	Color         *string
	Repetitions   *int
	PlaybackSpeed *float64
	ClearSpeed    bool
}

// SessionFacade is the single source of UI-facing session state. It wraps
// a SessionManager with derived views, loop editing, and import/export.
type SessionFacade interface {
	State() FacadeState
	Subscribe(fn func(StateChange)) (cancel func())
	Mutations() []Mutation
	Refresh()

	CreateSession(params CreateSessionParams) (*models.LooperSession, error)
	SaveSession() error
	LoadSession(id string) bool
	DeleteSession(id string) error
	UpdateSession(update models.SessionUpdate) (*models.LooperSession, error)
	SessionExistsByName(name string) bool

	SetSearchQuery(query string)
	SetVideoFilter(videoID string)
	ClearFilters()

	AddLoop(loop models.LoopSegment) (*LoopResult, error)
	UpdateLoop(loopID string, edit LoopEdit) (*LoopResult, error)
	RemoveLoop(loopID string) error
	SetLoopSpeed(loopID string, speed float64) error
	SetGlobalSpeed(speed float64) error
	ResetSpeeds() error

	ExportAll(dir string) (string, error)
	ExportSelected(dir string, ids []string) (string, error)
	ExportSession(dir, id string) (string, error)
	ImportFile(path string) (*ImportResult, error)
	ImportData(data []byte) (*ImportResult, error)
	PreviewImportFile(path string) (*ImportPreview, error)
	PreviewImport(data []byte) *ImportPreview
}

// FacadeOptions configures optional collaborators of the facade.
type FacadeOptions struct {
	Speeds        SpeedManager
	Conflicts     ConflictDetector
	Events        EventLogger
	Logger        *slog.Logger
	Now           func() time.Time
	MaxImportSize int64
}

type sessionFacade struct {
	manager   SessionManager
	speeds    SpeedManager
	conflicts ConflictDetector
	events    EventLogger
	logger    *slog.Logger
	now       func() time.Time
	maxImport int64

	mu        sync.Mutex
	state     FacadeState
	mutations []Mutation
	seq       int
	subSeq    int
	subs      map[int]func(StateChange)
}

// NewSessionFacade creates a facade over manager. The manager is the source
// of truth; the facade mirrors its session list and recomputes the filtered
// view whenever the list, the search query, or the video filter changes.
func NewSessionFacade(manager SessionManager, opts FacadeOptions) SessionFacade {
	f := &sessionFacade{
		manager:   manager,
		speeds:    opts.Speeds,
		conflicts: opts.Conflicts,
		events:    opts.Events,
		logger:    opts.Logger,
		now:       opts.Now,
		maxImport: opts.MaxImportSize,
		subs:      make(map[int]func(StateChange)),
	}
	if f.speeds == nil {
		f.speeds = NewSpeedManager()
	}
	if f.logger == nil {
		f.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if f.now == nil {
		f.now = func() time.Time { return time.Now().UTC() }
	}
	if f.maxImport <= 0 {
		f.maxImport = DefaultMaxImportSize
	}
	if f.conflicts == nil {
		f.conflicts = NewConflictDetector(func() []models.LooperSession { return f.State().Sessions })
	}

	manager.OnChange(func() { f.refresh("sessions.changed") })
	f.refresh("init")
	if active := manager.ActiveSession(); active != nil {
		f.commit("session.restored", active.ID, func() {
			f.state.CurrentSession = active
		})
		f.speeds.LoadFromSession(*active)
	}
	return f
}

// State returns a deep copy of the current state.
func (f *sessionFacade) State() FacadeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Subscribe registers fn for every subsequent state change.
func (f *sessionFacade) Subscribe(fn func(StateChange)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subSeq++
	id := f.subSeq
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// Mutations returns the most recent mutations, oldest first.
func (f *sessionFacade) Mutations() []Mutation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Mutation(nil), f.mutations...)
}

// Refresh re-reads the session list from the manager.
func (f *sessionFacade) Refresh() {
	f.refresh("sessions.refreshed")
}

func (f *sessionFacade) refresh(action string) {
	sessions := f.manager.Sessions()
	f.commit(action, "", func() {
		f.state.Sessions = sessions
		if cur := f.state.CurrentSession; cur != nil {
			if s := findSession(sessions, cur.ID); s != nil {
				cp := s.Clone()
				f.state.CurrentSession = &cp
			} else {
				f.state.CurrentSession = nil
			}
		}
	})
}

// commit applies mutate under the lock, recomputes derived views, records
// the mutation, and notifies subscribers outside the lock. mutate must not
// call the manager.
func (f *sessionFacade) commit(action, sessionID string, mutate func()) {
	f.mu.Lock()
	mutate()
	f.state.FilteredSessions = filterSessions(f.state.Sessions, f.state.SearchQuery, f.state.SelectedVideoID)

	f.seq++
	m := Mutation{Seq: f.seq, Action: action, SessionID: sessionID, At: f.now()}
	f.mutations = append(f.mutations, m)
	if len(f.mutations) > maxMutationLog {
		f.mutations = f.mutations[len(f.mutations)-maxMutationLog:]
	}

	change := StateChange{Mutation: m, State: f.snapshotLocked()}
	subs := make([]func(StateChange), 0, len(f.subs))
	for i := 1; i <= f.subSeq; i++ {
		if fn, ok := f.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
}

func (f *sessionFacade) setLoading(loading bool) {
	f.commit("loading", "", func() { f.state.Loading = loading })
}

func (f *sessionFacade) snapshotLocked() FacadeState {
	s := FacadeState{
		Loading:          f.state.Loading,
		Sessions:         cloneSessions(f.state.Sessions),
		FilteredSessions: cloneSessions(f.state.FilteredSessions),
		SearchQuery:      f.state.SearchQuery,
		SelectedVideoID:  f.state.SelectedVideoID,
	}
	if f.state.CurrentSession != nil {
		cp := f.state.CurrentSession.Clone()
		s.CurrentSession = &cp
	}
	return s
}

func (f *sessionFacade) currentSession() *models.LooperSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.CurrentSession == nil {
		return nil
	}
	cp := f.state.CurrentSession.Clone()
	return &cp
}

// CreateSession creates a session, selects it as current and marks it
// active in the manager.
func (f *sessionFacade) CreateSession(params CreateSessionParams) (*models.LooperSession, error) {
	if f.SessionExistsByName(params.Name) {
		return nil, ErrDuplicateSessionName
	}

	f.setLoading(true)
	defer f.setLoading(false)

	session, err := f.manager.CreateSession(params)
	if err != nil {
		f.logger.Warn("creating session", "name", params.Name, "error", err)
		return nil, err
	}

	if err := f.manager.SetActiveSession(session.ID); err != nil {
		f.logger.Warn("activating new session", "session_id", session.ID, "error", err)
	} else {
		session.IsActive = true
	}
	f.speeds.LoadFromSession(*session)

	selected := session.Clone()
	f.commit("session.created", session.ID, func() {
		f.state.CurrentSession = &selected
	})
	return session, nil
}

// SaveSession persists the full state of the current session.
func (f *sessionFacade) SaveSession() error {
	cur := f.currentSession()
	if cur == nil {
		return ErrNoCurrentSession
	}

	f.speeds.ApplyToSession(cur)
	saved, err := f.manager.UpdateSession(cur.ID, fullUpdate(*cur))
	if err != nil {
		f.logger.Warn("saving session", "session_id", cur.ID, "error", err)
		return err
	}

	f.commit("session.saved", saved.ID, func() {
		f.state.CurrentSession = saved
	})
	return nil
}

// LoadSession selects a session from the cached list. It returns false when
// the ID is unknown to the facade.
func (f *sessionFacade) LoadSession(id string) bool {
	f.mu.Lock()
	s := findSession(f.state.Sessions, id)
	var selected models.LooperSession
	if s != nil {
		selected = s.Clone()
	}
	f.mu.Unlock()

	if s == nil {
		return false
	}

	if err := f.manager.SetActiveSession(id); err != nil {
		f.logger.Warn("activating session", "session_id", id, "error", err)
	} else {
		selected.IsActive = true
	}
	f.speeds.LoadFromSession(selected)

	f.commit("session.loaded", id, func() {
		f.state.CurrentSession = &selected
	})
	logEvent(f.events, EventSessionLoaded, map[string]any{"session_id": id})
	return true
}

// DeleteSession deletes a session and clears the current session when it
// was the one deleted.
func (f *sessionFacade) DeleteSession(id string) error {
	// The manager notifies the facade synchronously and that refresh drops
	// the deleted current session, so capture it first.
	cur := f.currentSession()
	wasCurrent := cur != nil && cur.ID == id

	if err := f.manager.DeleteSession(id); err != nil {
		f.logger.Warn("deleting session", "session_id", id, "error", err)
		return err
	}

	f.commit("session.deleted", id, func() {
		if f.state.CurrentSession != nil && f.state.CurrentSession.ID == id {
			f.state.CurrentSession = nil
		}
	})
	if wasCurrent {
		f.speeds.ResetAllSpeeds()
	}
	return nil
}

// UpdateSession merges update into the current session immediately, then
// persists it. When persisting fails the local change is rolled back.
func (f *sessionFacade) UpdateSession(update models.SessionUpdate) (*models.LooperSession, error) {
	prev := f.currentSession()
	if prev == nil {
		return nil, ErrNoCurrentSession
	}

	optimistic := prev.Clone()
	update.Apply(&optimistic)
	f.commit("session.updating", prev.ID, func() {
		f.state.CurrentSession = &optimistic
	})

	saved, err := f.manager.UpdateSession(prev.ID, update)
	if err != nil {
		f.logger.Warn("updating session, rolling back", "session_id", prev.ID, "error", err)
		f.commit("session.update_rolled_back", prev.ID, func() {
			if f.state.CurrentSession != nil && f.state.CurrentSession.ID == prev.ID {
				f.state.CurrentSession = prev
			}
		})
		return nil, err
	}

	f.commit("session.updated", saved.ID, func() {
		cp := saved.Clone()
		f.state.CurrentSession = &cp
	})
	return saved, nil
}

// SessionExistsByName reports whether a cached session has the same name,
// ignoring case and surrounding whitespace.
func (f *sessionFacade) SessionExistsByName(name string) bool {
	key := foldKey(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.state.Sessions {
		if foldKey(s.Name) == key {
			return true
		}
	}
	return false
}

func (f *sessionFacade) SetSearchQuery(query string) {
	f.commit("filter.query", "", func() { f.state.SearchQuery = query })
}

func (f *sessionFacade) SetVideoFilter(videoID string) {
	f.commit("filter.video", "", func() { f.state.SelectedVideoID = videoID })
}

func (f *sessionFacade) ClearFilters() {
	f.commit("filter.cleared", "", func() {
		f.state.SearchQuery = ""
		f.state.SelectedVideoID = ""
	})
}

// AddLoop validates loop and appends it to the current session. Overlaps
// with existing loops and ranges past the end of the video are reported as
// warnings.
func (f *sessionFacade) AddLoop(loop models.LoopSegment) (*LoopResult, error) {
	cur := f.currentSession()
	if cur == nil {
		return nil, ErrNoCurrentSession
	}

	if res := ValidateLoop(loop); !res.Valid {
		return nil, &ValidationError{Errors: res.Errors}
	}
	if loop.ID == "" {
		loop.ID = NewLoopID()
	}
	if loop.Color == "" {
		loop.Color = GenerateRandomColor()
	}
	warnings := loopWarnings(cur, loop)

	saved, err := f.manager.AddLoopsToSession(cur.ID, []models.LoopSegment{loop})
	if err != nil {
		return nil, err
	}
	if loop.PlaybackSpeed != nil {
		_ = f.speeds.SetLoopSpeed(loop.ID, *loop.PlaybackSpeed)
	}

	f.commit("loop.added", cur.ID, func() { f.state.CurrentSession = saved })
	added := saved.Loops[len(saved.Loops)-1]
	return &LoopResult{Loop: added, Warnings: warnings}, nil
}

// UpdateLoop applies edit to a loop of the current session.
func (f *sessionFacade) UpdateLoop(loopID string, edit LoopEdit) (*LoopResult, error) {
	cur := f.currentSession()
	if cur == nil {
		return nil, ErrNoCurrentSession
	}
	idx := loopIndex(cur.Loops, loopID)
	if idx < 0 {
		return nil, ErrLoopNotFound
	}

	loop := cur.Loops[idx]
	applyLoopEdit(&loop, edit)
	if res := ValidateLoop(loop); !res.Valid {
		return nil, &ValidationError{Errors: res.Errors}
	}
	loop.UpdatedAt = f.now()
	warnings := loopWarnings(cur, loop)

	loops := cur.Clone().Loops
	loops[idx] = loop
	if _, err := f.UpdateSession(models.SessionUpdate{Loops: loops}); err != nil {
		return nil, err
	}

	switch {
	case edit.ClearSpeed:
		f.speeds.ClearLoopSpeed(loopID)
	case loop.PlaybackSpeed != nil:
		_ = f.speeds.SetLoopSpeed(loopID, *loop.PlaybackSpeed)
	}
	return &LoopResult{Loop: loop, Warnings: warnings}, nil
}

// RemoveLoop deletes a loop from the current session.
func (f *sessionFacade) RemoveLoop(loopID string) error {
	cur := f.currentSession()
	if cur == nil {
		return ErrNoCurrentSession
	}
	idx := loopIndex(cur.Loops, loopID)
	if idx < 0 {
		return ErrLoopNotFound
	}

	loops := cur.Clone().Loops
	loops = append(loops[:idx], loops[idx+1:]...)
	if _, err := f.UpdateSession(models.SessionUpdate{Loops: loops}); err != nil {
		return err
	}

	f.speeds.ClearLoopSpeed(loopID)
	if f.speeds.ActiveLoopID() == loopID {
		f.speeds.SetActiveLoop("")
	}
	logEvent(f.events, EventLoopRemoved, map[string]any{"session_id": cur.ID, "loop_id": loopID})
	return nil
}

// SetLoopSpeed maps a loop of the current session to speed and persists it.
func (f *sessionFacade) SetLoopSpeed(loopID string, speed float64) error {
	cur := f.currentSession()
	if cur == nil {
		return ErrNoCurrentSession
	}
	if loopIndex(cur.Loops, loopID) < 0 {
		return ErrLoopNotFound
	}
	if err := f.speeds.SetLoopSpeed(loopID, speed); err != nil {
		return err
	}
	return f.persistSpeeds(*cur)
}

// SetGlobalSpeed changes the current session's global speed and persists it.
func (f *sessionFacade) SetGlobalSpeed(speed float64) error {
	cur := f.currentSession()
	if cur == nil {
		return ErrNoCurrentSession
	}
	if err := f.speeds.SetGlobalSpeed(speed); err != nil {
		return err
	}
	return f.persistSpeeds(*cur)
}

// ResetSpeeds clears every speed of the current session.
func (f *sessionFacade) ResetSpeeds() error {
	cur := f.currentSession()
	if cur == nil {
		return ErrNoCurrentSession
	}
	f.speeds.ResetAllSpeeds()
	return f.persistSpeeds(*cur)
}

func (f *sessionFacade) persistSpeeds(cur models.LooperSession) error {
	f.speeds.ApplyToSession(&cur)
	speed := cur.GlobalPlaybackSpeed
	_, err := f.UpdateSession(models.SessionUpdate{Loops: cur.Loops, GlobalPlaybackSpeed: &speed})
	return err
}

func loopWarnings(session *models.LooperSession, loop models.LoopSegment) []string {
	var warnings []string
	for _, o := range FindOverlappingLoops(session.Loops, loop) {
		warnings = append(warnings, fmt.Sprintf("La boucle chevauche %q (%s - %s)", o.Name,
			timeutil.FormatSecondsToMMSS(o.StartTime, false),
			timeutil.FormatSecondsToMMSS(o.EndTime, false)))
	}
	return append(warnings, ValidateLoopAgainstVideo(loop, session.VideoDuration)...)
}

func applyLoopEdit(loop *models.LoopSegment, edit LoopEdit) {
	if edit.Name != nil {
		loop.Name = *edit.Name
	}
	if edit.StartTime != nil {
		loop.StartTime = *edit.StartTime
	}
	if edit.EndTime != nil {
		loop.EndTime = *edit.EndTime
	}
	if edit.Color != nil {
		loop.Color = *edit.Color
	}
	if edit.Repetitions != nil {
		r := *edit.Repetitions
		loop.Repetitions = &r
	}
	if edit.PlaybackSpeed != nil {
		s := *edit.PlaybackSpeed
		loop.PlaybackSpeed = &s
	}
	if edit.ClearSpeed {
		loop.PlaybackSpeed = nil
	}
}

func loopIndex(loops []models.LoopSegment, id string) int {
	for i := range loops {
		if loops[i].ID == id {
			return i
		}
	}
	return -1
}

func findSession(sessions []models.LooperSession, id string) *models.LooperSession {
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i]
		}
	}
	return nil
}

// filterSessions applies the search query and the video filter together.
// The query matches name, video title, or any tag, ignoring case.
func filterSessions(sessions []models.LooperSession, query, videoID string) []models.LooperSession {
	q := foldKey(query)
	out := make([]models.LooperSession, 0, len(sessions))
	for _, s := range sessions {
		if videoID != "" && s.VideoID != videoID {
			continue
		}
		if q != "" && !sessionMatches(s, q) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func sessionMatches(s models.LooperSession, foldedQuery string) bool {
	if strings.Contains(foldKey(s.Name), foldedQuery) || strings.Contains(foldKey(s.VideoTitle), foldedQuery) {
		return true
	}
	for _, t := range s.Tags {
		if strings.Contains(foldKey(t), foldedQuery) {
			return true
		}
	}
	return false
}

// fullUpdate builds an update that overwrites every mutable field.
func fullUpdate(s models.LooperSession) models.SessionUpdate {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	loops := s.Loops
	if loops == nil {
		loops = []models.LoopSegment{}
	}
	return models.SessionUpdate{
		Name:                &s.Name,
		Description:         &s.Description,
		Tags:                tags,
		VideoTitle:          &s.VideoTitle,
		VideoURL:            &s.VideoURL,
		VideoDuration:       &s.VideoDuration,
		Loops:               loops,
		GlobalPlaybackSpeed: &s.GlobalPlaybackSpeed,
		CurrentTime:         &s.CurrentTime,
		IsActive:            &s.IsActive,
		TotalPlayTime:       &s.TotalPlayTime,
		PlayCount:           &s.PlayCount,
	}
}

// IsValidationError reports whether err carries accumulated validation messages.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
