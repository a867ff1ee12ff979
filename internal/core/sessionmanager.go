package core

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/valter-silva-au/looper/pkg/models"
)

// Session constraints.
const (
	MinSessionNameLength  = 2
	MaxSessionNameLength  = 50
	MaxDescriptionLength  = 200
	maxStoredHistoryItems = 100
)

// CreateSessionParams holds the metadata needed to create a session.
type CreateSessionParams struct {
	Name          string
	Description   string
	Tags          []string
	VideoID       string
	VideoTitle    string
	VideoURL      string
	VideoDuration float64
}

// SessionManager owns the persisted sessions, settings, history and
// playback state. Expected failures are returned as errors carrying a
// French message; the most recent one is also kept in LastError.
type SessionManager interface {
	Sessions() []models.LooperSession
	ActiveSession() *models.LooperSession
	CurrentState() models.CurrentState
	Settings() models.Settings
	History() []models.SessionHistoryEntry
	LastError() string

	CreateSession(params CreateSessionParams) (*models.LooperSession, error)
	AddSession(session models.LooperSession) error
	UpdateSession(id string, update models.SessionUpdate) (*models.LooperSession, error)
	DeleteSession(id string) error
	SetActiveSession(id string) error
	AddLoopsToSession(id string, loops []models.LoopSegment) (*models.LooperSession, error)
	UpdateSettings(update models.SettingsUpdate) error
	UpdateCurrentState(update models.CurrentStateUpdate) error

	ExportSessions() ([]byte, error)
	ImportSessions(data []byte) (int, error)
	GetRecentSessions(limit int) []models.LooperSession
	GetStorageInfo() (models.StorageInfo, error)

	Reload() error
	OnChange(fn func()) (cancel func())
}

// SessionManagerOptions configures optional collaborators.
type SessionManagerOptions struct {
	Events EventLogger
	Logger *slog.Logger
	Now    func() time.Time
	// Settings seeds the settings when the repository has none saved yet.
	Settings *models.Settings
}

type sessionManager struct {
	mu        sync.Mutex
	repo      SessionRepository
	events    EventLogger
	logger    *slog.Logger
	now       func() time.Time
	defaults  models.Settings
	sessions  []models.LooperSession
	settings  models.Settings
	history   []models.SessionHistoryEntry
	state     models.CurrentState
	lastError string

	listenerSeq int
	listeners   map[int]func()
}

// NewSessionManager creates a SessionManager backed by repo and loads the
// persisted state.
func NewSessionManager(repo SessionRepository, opts SessionManagerOptions) (SessionManager, error) {
	if repo == nil {
		return nil, fmt.Errorf("session repository is nil")
	}
	m := &sessionManager{
		repo:      repo,
		events:    opts.Events,
		logger:    opts.Logger,
		now:       opts.Now,
		defaults:  models.DefaultSettings(),
		listeners: make(map[int]func()),
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Settings != nil {
		m.defaults = *opts.Settings
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *sessionManager) load() error {
	sessions, err := m.repo.LoadSessions()
	if err != nil {
		return fmt.Errorf("loading sessions: %w", err)
	}
	settings, err := m.repo.LoadSettings()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	history, err := m.repo.LoadHistory()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	state, err := m.repo.LoadState()
	if err != nil {
		return fmt.Errorf("loading current state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = sessions
	m.settings = m.defaults
	if settings != nil {
		m.settings = *settings
	}
	m.history = history
	m.state = models.CurrentState{PlaybackSpeed: m.settings.DefaultPlaybackSpeed}
	if state != nil {
		m.state = *state
	}
	return nil
}

// Reload re-reads everything from the repository and notifies listeners.
func (m *sessionManager) Reload() error {
	if err := m.load(); err != nil {
		return err
	}
	m.notify()
	return nil
}

// OnChange registers fn to be called after every change to the session list.
func (m *sessionManager) OnChange(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listenerSeq++
	id := m.listenerSeq
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// notify must be called without holding m.mu.
func (m *sessionManager) notify() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.listeners))
	for _, id := range sortedKeys(m.listeners) {
		fns = append(fns, m.listeners[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func sortedKeys(m map[int]func()) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (m *sessionManager) Sessions() []models.LooperSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSessions(m.sessions)
}

func (m *sessionManager) ActiveSession() *models.LooperSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.ActiveSessionID == "" {
		return nil
	}
	if i := m.indexLocked(m.state.ActiveSessionID); i >= 0 {
		cp := m.sessions[i].Clone()
		return &cp
	}
	return nil
}

func (m *sessionManager) CurrentState() models.CurrentState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *sessionManager) Settings() models.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

func (m *sessionManager) History() []models.SessionHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SessionHistoryEntry(nil), m.history...)
}

func (m *sessionManager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// fail records err as the last error and returns it. Caller holds m.mu.
func (m *sessionManager) fail(err error) error {
	m.lastError = err.Error()
	m.logger.Warn("session manager operation failed", "error", err)
	return err
}

func (m *sessionManager) indexLocked(id string) int {
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *sessionManager) idExistsLocked(id string) bool {
	return m.indexLocked(id) >= 0
}

// CreateSession validates params and stores a new, empty session.
func (m *sessionManager) CreateSession(params CreateSessionParams) (*models.LooperSession, error) {
	m.mu.Lock()

	if err := validationErr(ValidateSessionParams(params)); err != nil {
		err = m.fail(err)
		m.mu.Unlock()
		return nil, err
	}

	now := m.now()
	url := params.VideoURL
	if url == "" {
		url = BuildVideoURL(params.VideoID)
	}
	session := models.LooperSession{
		ID:                  GenerateSessionID(m.idExistsLocked, now),
		Name:                strings.TrimSpace(params.Name),
		Description:         strings.TrimSpace(params.Description),
		Tags:                NormalizeTags(params.Tags),
		VideoID:             params.VideoID,
		VideoTitle:          strings.TrimSpace(params.VideoTitle),
		VideoURL:            url,
		VideoDuration:       params.VideoDuration,
		Loops:               []models.LoopSegment{},
		GlobalPlaybackSpeed: m.settings.DefaultPlaybackSpeed,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	next := append(cloneSessions(m.sessions), session)
	if err := m.repo.SaveSessions(next); err != nil {
		err = m.fail(fmt.Errorf("enregistrement de la session: %w", err))
		m.mu.Unlock()
		return nil, err
	}
	m.sessions = next
	m.lastError = ""
	m.mu.Unlock()

	logEvent(m.events, EventSessionCreated, map[string]any{"session_id": session.ID, "video_id": session.VideoID})
	m.logger.Debug("session created", "session_id", session.ID, "name", session.Name)
	m.notify()
	cp := session.Clone()
	return &cp, nil
}

// AddSession stores a fully formed session, as produced by an import.
func (m *sessionManager) AddSession(session models.LooperSession) error {
	m.mu.Lock()

	var errs []string
	if session.ID == "" {
		errs = append(errs, "Identifiant de session requis")
	}
	if strings.TrimSpace(session.Name) == "" {
		errs = append(errs, "Le nom est requis")
	}
	if session.VideoID == "" {
		errs = append(errs, "Identifiant de vidéo requis")
	}
	errs = append(errs, validateLoops(session.Loops)...)
	if err := validationErr(errs); err != nil {
		err = m.fail(err)
		m.mu.Unlock()
		return err
	}
	if m.idExistsLocked(session.ID) {
		err := m.fail(fmt.Errorf("la session %s existe déjà", session.ID))
		m.mu.Unlock()
		return err
	}

	next := append(cloneSessions(m.sessions), session.Clone())
	if err := m.repo.SaveSessions(next); err != nil {
		err = m.fail(fmt.Errorf("enregistrement de la session: %w", err))
		m.mu.Unlock()
		return err
	}
	m.sessions = next
	m.lastError = ""
	m.mu.Unlock()

	m.notify()
	return nil
}

// UpdateSession merges update into the session with the given ID.
func (m *sessionManager) UpdateSession(id string, update models.SessionUpdate) (*models.LooperSession, error) {
	m.mu.Lock()

	i := m.indexLocked(id)
	if i < 0 {
		err := m.fail(ErrSessionNotFound)
		m.mu.Unlock()
		return nil, err
	}

	var errs []string
	if update.Name != nil {
		errs = append(errs, validateSessionName(*update.Name)...)
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}
	if update.Description != nil && utf8.RuneCountInString(*update.Description) > MaxDescriptionLength {
		errs = append(errs, fmt.Sprintf("La description ne peut pas dépasser %d caractères", MaxDescriptionLength))
	}
	if update.GlobalPlaybackSpeed != nil && !speedInRange(*update.GlobalPlaybackSpeed) {
		errs = append(errs, speedRangeMessage())
	}
	if update.Tags != nil {
		update.Tags = NormalizeTags(update.Tags)
	}
	if err := validationErr(errs); err != nil {
		err = m.fail(err)
		m.mu.Unlock()
		return nil, err
	}

	next := cloneSessions(m.sessions)
	update.Apply(&next[i])
	next[i].UpdatedAt = m.now()

	if err := m.repo.SaveSessions(next); err != nil {
		err = m.fail(fmt.Errorf("enregistrement de la session: %w", err))
		m.mu.Unlock()
		return nil, err
	}
	m.sessions = next
	m.lastError = ""
	updated := next[i].Clone()
	m.mu.Unlock()

	logEvent(m.events, EventSessionUpdated, map[string]any{"session_id": id})
	m.notify()
	return &updated, nil
}

// DeleteSession removes a session along with its history entries.
func (m *sessionManager) DeleteSession(id string) error {
	m.mu.Lock()

	i := m.indexLocked(id)
	if i < 0 {
		err := m.fail(ErrSessionNotFound)
		m.mu.Unlock()
		return err
	}

	next := cloneSessions(m.sessions)
	next = append(next[:i], next[i+1:]...)
	if err := m.repo.SaveSessions(next); err != nil {
		err = m.fail(fmt.Errorf("suppression de la session: %w", err))
		m.mu.Unlock()
		return err
	}
	m.sessions = next
	m.lastError = ""

	// History and state are secondary; a failure here leaves a dangling
	// reference that GetRecentSessions already skips.
	var history []models.SessionHistoryEntry
	for _, h := range m.history {
		if h.SessionID != id {
			history = append(history, h)
		}
	}
	if len(history) != len(m.history) {
		if err := m.repo.SaveHistory(history); err != nil {
			m.logger.Warn("pruning history after delete", "session_id", id, "error", err)
		} else {
			m.history = history
		}
	}
	if m.state.ActiveSessionID == id {
		state := m.state
		state.ActiveSessionID = ""
		state.ActiveLoopID = ""
		state.IsPlaying = false
		if err := m.repo.SaveState(state); err != nil {
			m.logger.Warn("clearing active session after delete", "session_id", id, "error", err)
		}
		m.state = state
	}
	m.mu.Unlock()

	logEvent(m.events, EventSessionDeleted, map[string]any{"session_id": id})
	m.notify()
	return nil
}

// SetActiveSession marks the session as active, records it in the history
// and makes it the current state's session. An empty ID clears the active
// session.
func (m *sessionManager) SetActiveSession(id string) error {
	m.mu.Lock()

	if id != "" && m.indexLocked(id) < 0 {
		err := m.fail(ErrSessionNotFound)
		m.mu.Unlock()
		return err
	}

	next := cloneSessions(m.sessions)
	for i := range next {
		next[i].IsActive = next[i].ID == id
	}
	if err := m.repo.SaveSessions(next); err != nil {
		err = m.fail(fmt.Errorf("activation de la session: %w", err))
		m.mu.Unlock()
		return err
	}
	m.sessions = next

	state := m.state
	if state.ActiveSessionID != id {
		state.ActiveLoopID = ""
		state.IsPlaying = false
	}
	state.ActiveSessionID = id
	if i := m.indexLocked(id); i >= 0 {
		state.CurrentTime = next[i].CurrentTime
		state.PlaybackSpeed = next[i].GlobalPlaybackSpeed
	}
	if err := m.repo.SaveState(state); err != nil {
		err = m.fail(fmt.Errorf("enregistrement de l'état: %w", err))
		m.mu.Unlock()
		return err
	}
	m.state = state

	if id != "" {
		history := append(append([]models.SessionHistoryEntry(nil), m.history...),
			models.SessionHistoryEntry{SessionID: id, AccessedAt: m.now()})
		if len(history) > maxStoredHistoryItems {
			history = history[len(history)-maxStoredHistoryItems:]
		}
		if err := m.repo.SaveHistory(history); err != nil {
			m.logger.Warn("recording history", "session_id", id, "error", err)
		} else {
			m.history = history
		}
	}
	m.lastError = ""
	m.mu.Unlock()

	m.notify()
	return nil
}

// AddLoopsToSession validates and appends loops to a session. Nothing is
// added when any loop is invalid.
func (m *sessionManager) AddLoopsToSession(id string, loops []models.LoopSegment) (*models.LooperSession, error) {
	m.mu.Lock()

	i := m.indexLocked(id)
	if i < 0 {
		err := m.fail(ErrSessionNotFound)
		m.mu.Unlock()
		return nil, err
	}

	now := m.now()
	var errs []string
	prepared := make([]models.LoopSegment, 0, len(loops))
	for n, l := range loops {
		res := ValidateLoop(l)
		for _, e := range res.Errors {
			errs = append(errs, fmt.Sprintf("boucle %d: %s", n+1, e))
		}
		if l.ID == "" {
			l.ID = NewLoopID()
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		l.UpdatedAt = now
		prepared = append(prepared, l)
	}
	if err := validationErr(errs); err != nil {
		err = m.fail(err)
		m.mu.Unlock()
		return nil, err
	}

	next := cloneSessions(m.sessions)
	next[i].Loops = append(next[i].Loops, prepared...)
	next[i].UpdatedAt = now
	if err := m.repo.SaveSessions(next); err != nil {
		err = m.fail(fmt.Errorf("enregistrement des boucles: %w", err))
		m.mu.Unlock()
		return nil, err
	}
	m.sessions = next
	m.lastError = ""
	updated := next[i].Clone()
	m.mu.Unlock()

	for _, l := range prepared {
		logEvent(m.events, EventLoopAdded, map[string]any{"session_id": id, "loop_id": l.ID})
	}
	m.notify()
	return &updated, nil
}

// UpdateSettings merges update into the settings.
func (m *sessionManager) UpdateSettings(update models.SettingsUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []string
	if update.DefaultPlaybackSpeed != nil && !speedInRange(*update.DefaultPlaybackSpeed) {
		errs = append(errs, speedRangeMessage())
	}
	if update.MaxHistoryItems != nil && *update.MaxHistoryItems < 1 {
		errs = append(errs, "Le nombre d'éléments d'historique doit être au moins 1")
	}
	if err := validationErr(errs); err != nil {
		return m.fail(err)
	}

	next := m.settings
	if update.DefaultPlaybackSpeed != nil {
		next.DefaultPlaybackSpeed = *update.DefaultPlaybackSpeed
	}
	if update.AutoSave != nil {
		next.AutoSave = *update.AutoSave
	}
	if update.MaxHistoryItems != nil {
		next.MaxHistoryItems = *update.MaxHistoryItems
	}
	if update.ConfirmDelete != nil {
		next.ConfirmDelete = *update.ConfirmDelete
	}
	if err := m.repo.SaveSettings(next); err != nil {
		return m.fail(fmt.Errorf("enregistrement des paramètres: %w", err))
	}
	m.settings = next
	m.lastError = ""
	return nil
}

// UpdateCurrentState merges update into the playback state.
func (m *sessionManager) UpdateCurrentState(update models.CurrentStateUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if update.PlaybackSpeed != nil && !speedInRange(*update.PlaybackSpeed) {
		return m.fail(ErrSpeedOutOfRange)
	}
	if update.CurrentTime != nil && *update.CurrentTime < 0 {
		return m.fail(fmt.Errorf("Le temps courant ne peut pas être négatif"))
	}

	next := m.state
	if update.ActiveLoopID != nil {
		next.ActiveLoopID = *update.ActiveLoopID
	}
	if update.IsPlaying != nil {
		next.IsPlaying = *update.IsPlaying
	}
	if update.CurrentTime != nil {
		next.CurrentTime = *update.CurrentTime
	}
	if update.PlaybackSpeed != nil {
		next.PlaybackSpeed = *update.PlaybackSpeed
	}
	if err := m.repo.SaveState(next); err != nil {
		return m.fail(fmt.Errorf("enregistrement de l'état: %w", err))
	}
	m.state = next
	m.lastError = ""
	return nil
}

// legacyExport is the document written by ExportSessions. It carries no
// type discriminator and is read back by ImportSessions.
type legacyExport struct {
	ExportedAt time.Time              `json:"exportedAt"`
	Sessions   []models.LooperSession `json:"sessions"`
	Settings   *models.Settings       `json:"settings,omitempty"`
}

// ExportSessions serialises every session and the settings as a full backup.
func (m *sessionManager) ExportSessions() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings := m.settings
	doc := legacyExport{
		ExportedAt: m.now(),
		Sessions:   cloneSessions(m.sessions),
		Settings:   &settings,
	}
	if doc.Sessions == nil {
		doc.Sessions = []models.LooperSession{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, m.fail(fmt.Errorf("sérialisation des sessions: %w", err))
	}
	return data, nil
}

// ImportSessions reads a full backup, either a bare array of sessions or an
// object with a sessions field. Sessions whose ID already exists replace the
// stored copy. It returns the number of sessions imported.
func (m *sessionManager) ImportSessions(data []byte) (int, error) {
	var raw []json.RawMessage
	trimmed := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(trimmed, "["):
		if err := json.Unmarshal(data, &raw); err != nil {
			return 0, m.failLocked(fmt.Errorf("%w: %v", ErrInvalidJSON, err))
		}
	case strings.HasPrefix(trimmed, "{"):
		var doc struct {
			Sessions []json.RawMessage `json:"sessions"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return 0, m.failLocked(fmt.Errorf("%w: %v", ErrInvalidJSON, err))
		}
		if doc.Sessions == nil {
			return 0, m.failLocked(ErrUnrecognizedFormat)
		}
		raw = doc.Sessions
	default:
		return 0, m.failLocked(ErrUnrecognizedFormat)
	}

	now := m.now()
	defaultSpeed := m.Settings().DefaultPlaybackSpeed
	var incoming []models.LooperSession
	for _, r := range raw {
		session, errs := DecodeSession(r)
		if len(errs) > 0 {
			m.logger.Warn("skipping invalid session in backup", "errors", strings.Join(errs, "; "))
			continue
		}
		normalizeImported(session, now, defaultSpeed)
		incoming = append(incoming, *session)
	}
	if len(incoming) == 0 {
		return 0, m.failLocked(ErrEmptyImport)
	}

	m.mu.Lock()
	next := cloneSessions(m.sessions)
	for _, s := range incoming {
		s.IsActive = s.IsActive && s.ID == m.state.ActiveSessionID
		replaced := false
		for i := range next {
			if next[i].ID == s.ID {
				next[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			next = append(next, s)
		}
	}
	if err := m.repo.SaveSessions(next); err != nil {
		err = m.fail(fmt.Errorf("enregistrement des sessions importées: %w", err))
		m.mu.Unlock()
		return 0, err
	}
	m.sessions = next
	m.lastError = ""
	m.mu.Unlock()

	for _, s := range incoming {
		logEvent(m.events, EventSessionImported, map[string]any{"session_id": s.ID, "legacy": true})
	}
	m.notify()
	return len(incoming), nil
}

func (m *sessionManager) failLocked(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fail(err)
}

// GetRecentSessions returns distinct sessions from the history, newest
// first. A non-positive limit uses the MaxHistoryItems setting.
func (m *sessionManager) GetRecentSessions(limit int) []models.LooperSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = m.settings.MaxHistoryItems
	}

	seen := make(map[string]bool)
	var recent []models.LooperSession
	for i := len(m.history) - 1; i >= 0 && len(recent) < limit; i-- {
		id := m.history[i].SessionID
		if seen[id] {
			continue
		}
		seen[id] = true
		if j := m.indexLocked(id); j >= 0 {
			recent = append(recent, m.sessions[j].Clone())
		}
	}
	return recent
}

// GetStorageInfo reports the repository footprint and item counts.
func (m *sessionManager) GetStorageInfo() (models.StorageInfo, error) {
	info, err := m.repo.Info()
	if err != nil {
		return models.StorageInfo{}, m.failLocked(fmt.Errorf("lecture du stockage: %w", err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	info.SessionCount = len(m.sessions)
	info.LoopCount = 0
	for _, s := range m.sessions {
		info.LoopCount += len(s.Loops)
	}
	info.HistoryCount = len(m.history)
	return info, nil
}

// ValidateSessionParams returns every problem with the creation parameters.
func ValidateSessionParams(p CreateSessionParams) []string {
	errs := validateSessionName(p.Name)
	if utf8.RuneCountInString(p.Description) > MaxDescriptionLength {
		errs = append(errs, fmt.Sprintf("La description ne peut pas dépasser %d caractères", MaxDescriptionLength))
	}
	if !IsValidVideoID(p.VideoID) {
		errs = append(errs, "Identifiant de vidéo invalide")
	}
	if strings.TrimSpace(p.VideoTitle) == "" {
		errs = append(errs, "Le titre de la vidéo est requis")
	}
	if p.VideoDuration <= 0 {
		errs = append(errs, "La durée de la vidéo doit être positive")
	}
	return errs
}

func validateSessionName(name string) []string {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	switch {
	case n < MinSessionNameLength:
		return []string{fmt.Sprintf("Le nom doit contenir au moins %d caractères", MinSessionNameLength)}
	case n > MaxSessionNameLength:
		return []string{fmt.Sprintf("Le nom ne peut pas dépasser %d caractères", MaxSessionNameLength)}
	}
	return nil
}

// NormalizeTags trims every tag and drops empty ones.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// GenerateSessionID builds an ID from the timestamp and a random suffix,
// retrying until exists reports it unused.
func GenerateSessionID(exists func(string) bool, now time.Time) string {
	for {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
		id := fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
		if exists == nil || !exists(id) {
			return id
		}
	}
}

// foldKey returns the case-folded form of s for case-insensitive comparison.
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func cloneSessions(in []models.LooperSession) []models.LooperSession {
	if in == nil {
		return nil
	}
	out := make([]models.LooperSession, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
