package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/valter-silva-au/looper/pkg/models"
)

// DefaultMaxImportSize is the largest file accepted for import (10 MiB).
const DefaultMaxImportSize int64 = 10 * 1024 * 1024

const (
	exportTimestampLayout = "20060102-1504"
	maxSanitizedNameLen   = 30
)

// ImportKind identifies how an import document was interpreted.
type ImportKind string

const (
	ImportSingle   ImportKind = "single-session"
	ImportMultiple ImportKind = "multiple-sessions"
	ImportLegacy   ImportKind = "legacy"
)

// ImportFailure describes one session that could not be imported.
type ImportFailure struct {
	Index int
	Name  string
	Error string
}

// ImportResult summarises a committed import.
type ImportResult struct {
	Kind     ImportKind
	Imported []models.LooperSession
	Count    int
	Failures []ImportFailure
	Partial  bool
	Message  string
}

// PreviewSession is a summary of one importable session.
type PreviewSession struct {
	Name      string
	VideoID   string
	LoopCount int
}

// ImportPreview is the outcome of validating an import without committing it.
type ImportPreview struct {
	Valid         bool
	Kind          ImportKind
	SessionsCount int
	Sessions      []PreviewSession
	Errors        []string
	Conflicts     []Conflict
}

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_ \t\n\r]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// SanitizeFileName turns a session name into a file name fragment: unsafe
// characters removed, whitespace collapsed to hyphens, lowercased, and
// truncated to 30 characters.
func SanitizeFileName(name string) string {
	s := unsafeNameChars.ReplaceAllString(name, "")
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), "-")
	s = strings.ToLower(s)
	if len(s) > maxSanitizedNameLen {
		s = s[:maxSanitizedNameLen]
	}
	return s
}

// ExportFileName returns the file name for an export written at t. An empty
// sessionName names a multi-session export; selection marks an export of
// chosen sessions.
func ExportFileName(t time.Time, sessionName string, selection bool) string {
	stamp := t.Format(exportTimestampLayout)
	switch {
	case sessionName != "":
		if safe := SanitizeFileName(sessionName); safe != "" {
			return fmt.Sprintf("looper-session-%s-%s.json", safe, stamp)
		}
		return fmt.Sprintf("looper-session-%s.json", stamp)
	case selection:
		return fmt.Sprintf("looper-sessions-selection-%s.json", stamp)
	default:
		return fmt.Sprintf("looper-sessions-%s.json", stamp)
	}
}

// BuildSingleExport wraps one session in a single-session envelope.
func BuildSingleExport(session models.LooperSession, now time.Time) models.ExportEnvelope {
	cp := session.Clone()
	return models.ExportEnvelope{
		ExportedAt: now,
		Version:    models.ExportVersion,
		Type:       models.ExportSingleSession,
		Session:    &cp,
	}
}

// BuildMultipleExport wraps sessions in a multiple-sessions envelope.
func BuildMultipleExport(sessions []models.LooperSession, now time.Time) models.ExportEnvelope {
	cp := cloneSessions(sessions)
	if cp == nil {
		cp = []models.LooperSession{}
	}
	return models.ExportEnvelope{
		ExportedAt:    now,
		Version:       models.ExportVersion,
		Type:          models.ExportMultipleSessions,
		Sessions:      cp,
		SessionsCount: len(cp),
	}
}

// CheckImportFile rejects files that are not .json or exceed maxSize. It
// runs before any read or parse.
func CheckImportFile(name string, size, maxSize int64) error {
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		return ErrInvalidExtension
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxImportSize
	}
	if size > maxSize {
		return fmt.Errorf("%w (maximum %dMB)", ErrFileTooLarge, maxSize/(1024*1024))
	}
	return nil
}

// ValidateSessionShape checks the fields every imported session needs: id,
// name, videoId and videoTitle as non-empty strings, and loops as a list.
func ValidateSessionShape(raw map[string]any) []string {
	var errs []string
	for _, field := range []string{"id", "name", "videoId", "videoTitle"} {
		v, ok := raw[field]
		s, isString := v.(string)
		if !ok || !isString || strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Sprintf("Champ %q manquant ou invalide", field))
		}
	}
	if _, ok := raw["loops"].([]any); !ok {
		errs = append(errs, `Champ "loops" manquant ou invalide`)
	}
	return errs
}

// DecodeSession validates the shape of a raw session and decodes it.
func DecodeSession(raw json.RawMessage) (*models.LooperSession, []string) {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil || generic == nil {
		return nil, []string{"La session n'est pas un objet JSON"}
	}
	if errs := ValidateSessionShape(generic); len(errs) > 0 {
		return nil, errs
	}

	var session models.LooperSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, []string{fmt.Sprintf("Session mal formée: %v", err)}
	}
	if errs := validateLoops(session.Loops); len(errs) > 0 {
		return nil, errs
	}
	return &session, nil
}

// validateLoops runs ValidateLoop on every loop. Messages are prefixed with
// the loop name, or its position when unnamed.
func validateLoops(loops []models.LoopSegment) []string {
	var errs []string
	for i, l := range loops {
		res := ValidateLoop(l)
		if len(res.Errors) == 0 {
			continue
		}
		label := fmt.Sprintf("Boucle %d", i+1)
		if name := strings.TrimSpace(l.Name); name != "" {
			label = fmt.Sprintf("Boucle %q", name)
		}
		for _, e := range res.Errors {
			errs = append(errs, label+": "+e)
		}
	}
	return errs
}

// normalizeImported fills what older exports may omit: a global speed out
// of range becomes defaultSpeed and zero loop timestamps become now.
func normalizeImported(s *models.LooperSession, now time.Time, defaultSpeed float64) {
	if !speedInRange(s.GlobalPlaybackSpeed) {
		s.GlobalPlaybackSpeed = defaultSpeed
	}
	if s.Loops == nil {
		s.Loops = []models.LoopSegment{}
	}
	for i := range s.Loops {
		l := &s.Loops[i]
		if l.ID == "" {
			l.ID = NewLoopID()
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		if l.UpdatedAt.IsZero() {
			l.UpdatedAt = l.CreatedAt
		}
	}
}

// importDocument is an import payload after envelope dispatch.
type importDocument struct {
	kind     ImportKind
	sessions []json.RawMessage
	raw      []byte
}

// parseImportDocument checks the JSON syntax and dispatches on the envelope
// type. Documents with neither a type nor a version are legacy backups; a
// versioned document without a type is rejected.
func parseImportDocument(data []byte) (*importDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, ErrInvalidJSON
	}

	if trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, ErrInvalidJSON
		}
		return &importDocument{kind: ImportLegacy, sessions: arr, raw: trimmed}, nil
	}
	if trimmed[0] != '{' {
		return nil, ErrUnrecognizedFormat
	}

	var env struct {
		Type     *string           `json:"type"`
		Version  *string           `json:"version"`
		Session  json.RawMessage   `json:"session"`
		Sessions []json.RawMessage `json:"sessions"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}

	if env.Type == nil {
		if env.Sessions == nil {
			return nil, ErrUnrecognizedFormat
		}
		if env.Version != nil {
			return nil, fmt.Errorf("%w: champ \"type\" manquant", ErrUnrecognizedFormat)
		}
		return &importDocument{kind: ImportLegacy, sessions: env.Sessions, raw: trimmed}, nil
	}

	switch models.ExportType(*env.Type) {
	case models.ExportSingleSession:
		if len(env.Session) == 0 || string(env.Session) == "null" {
			return nil, fmt.Errorf("%w: champ \"session\" manquant", ErrUnrecognizedFormat)
		}
		return &importDocument{kind: ImportSingle, sessions: []json.RawMessage{env.Session}, raw: trimmed}, nil
	case models.ExportMultipleSessions:
		if env.Sessions == nil {
			return nil, fmt.Errorf("%w: champ \"sessions\" manquant", ErrUnrecognizedFormat)
		}
		return &importDocument{kind: ImportMultiple, sessions: env.Sessions, raw: trimmed}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExport, *env.Type)
	}
}

// ExportAll writes every session to dir and returns the file path.
func (f *sessionFacade) ExportAll(dir string) (string, error) {
	sessions := f.State().Sessions
	now := f.now()
	return f.writeExport(dir, ExportFileName(now, "", false), BuildMultipleExport(sessions, now))
}

// ExportSelected writes the sessions with the given IDs to dir.
func (f *sessionFacade) ExportSelected(dir string, ids []string) (string, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var selected []models.LooperSession
	for _, s := range f.State().Sessions {
		if wanted[s.ID] {
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		return "", ErrSessionNotFound
	}

	now := f.now()
	return f.writeExport(dir, ExportFileName(now, "", true), BuildMultipleExport(selected, now))
}

// ExportSession writes a single session to dir.
func (f *sessionFacade) ExportSession(dir, id string) (string, error) {
	s := findSession(f.State().Sessions, id)
	if s == nil {
		return "", ErrSessionNotFound
	}
	now := f.now()
	return f.writeExport(dir, ExportFileName(now, s.Name, false), BuildSingleExport(*s, now))
}

func (f *sessionFacade) writeExport(dir, name string, env models.ExportEnvelope) (string, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("sérialisation de l'export: %w", err)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("création du dossier d'export: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("écriture de l'export: %w", err)
	}

	count := len(env.Sessions)
	if env.Session != nil {
		count = 1
	}
	logEvent(f.events, EventSessionExported, map[string]any{"type": string(env.Type), "count": count, "path": path})
	f.logger.Info("sessions exported", "path", path, "count", count)
	return path, nil
}

// readImportFile applies the file constraints and reads the file.
func (f *sessionFacade) readImportFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("lecture du fichier: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("lecture du fichier: %s est un dossier", path)
	}
	if err := CheckImportFile(path, info.Size(), f.maxImport); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path chosen by the user for import
	if err != nil {
		return nil, fmt.Errorf("lecture du fichier: %w", err)
	}
	return data, nil
}

// ImportFile checks, reads and imports a JSON export file.
func (f *sessionFacade) ImportFile(path string) (*ImportResult, error) {
	data, err := f.readImportFile(path)
	if err != nil {
		return nil, err
	}
	return f.ImportData(data)
}

// ImportData imports an export document. Single and multiple envelopes
// are re-keyed and added one by one; a multiple-sessions import succeeds
// when at least one session is imported. Legacy backups are handed to the
// session manager as they are.
func (f *sessionFacade) ImportData(data []byte) (*ImportResult, error) {
	doc, err := parseImportDocument(data)
	if err != nil {
		return nil, err
	}

	f.setLoading(true)
	defer f.setLoading(false)

	if doc.kind == ImportLegacy {
		n, err := f.manager.ImportSessions(doc.raw)
		if err != nil {
			return nil, err
		}
		return &ImportResult{
			Kind:    ImportLegacy,
			Count:   n,
			Message: fmt.Sprintf("%d sessions importées", n),
		}, nil
	}

	if len(doc.sessions) == 0 {
		return nil, ErrEmptyImport
	}

	taken := make(map[string]bool)
	for _, s := range f.manager.Sessions() {
		taken[s.ID] = true
	}

	result := &ImportResult{Kind: doc.kind}
	for i, raw := range doc.sessions {
		session, err := f.importOne(raw, taken)
		if err != nil {
			result.Failures = append(result.Failures, ImportFailure{
				Index: i,
				Name:  rawSessionName(raw, i),
				Error: err.Error(),
			})
			continue
		}
		result.Imported = append(result.Imported, *session)
	}
	result.Count = len(result.Imported)

	switch {
	case result.Count == 0:
		return nil, fmt.Errorf("Aucune session importée: %s", joinFailures(result.Failures))
	case len(result.Failures) > 0:
		result.Partial = true
		result.Message = fmt.Sprintf("%d sessions importées, %d échecs: %s",
			result.Count, len(result.Failures), joinFailures(result.Failures))
	case doc.kind == ImportSingle:
		result.Message = fmt.Sprintf("Session %q importée avec succès", result.Imported[0].Name)
	default:
		result.Message = fmt.Sprintf("%d sessions importées avec succès", result.Count)
	}

	f.logger.Info("import finished", "kind", string(doc.kind), "imported", result.Count, "failed", len(result.Failures))
	return result, nil
}

// importOne validates a session and its loops, gives it a fresh unique ID,
// resets its timestamps and stores it as inactive.
func (f *sessionFacade) importOne(raw json.RawMessage, taken map[string]bool) (*models.LooperSession, error) {
	session, errs := DecodeSession(raw)
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	now := f.now()
	originalID := session.ID
	session.ID = GenerateSessionID(func(id string) bool { return taken[id] }, now)
	session.CreatedAt = now
	session.UpdatedAt = now
	session.IsActive = false
	session.Tags = NormalizeTags(session.Tags)
	normalizeImported(session, now, f.manager.Settings().DefaultPlaybackSpeed)
	for i := range session.Loops {
		session.Loops[i].IsActive = false
	}

	if err := f.manager.AddSession(*session); err != nil {
		return nil, err
	}
	taken[session.ID] = true

	logEvent(f.events, EventSessionImported, map[string]any{"session_id": session.ID, "original_id": originalID})
	return session, nil
}

// PreviewImportFile applies the file constraints, then previews the import.
func (f *sessionFacade) PreviewImportFile(path string) (*ImportPreview, error) {
	data, err := f.readImportFile(path)
	if err != nil {
		return nil, err
	}
	return f.PreviewImport(data), nil
}

// PreviewImport validates a document without importing it. It follows the
// same policy as ImportData: the preview is valid when the envelope is valid
// and at least one session passes validation. Per-session errors and
// conflicts with existing sessions are reported alongside.
func (f *sessionFacade) PreviewImport(data []byte) *ImportPreview {
	preview := &ImportPreview{}

	doc, err := parseImportDocument(data)
	if err != nil {
		preview.Errors = []string{err.Error()}
		return preview
	}
	preview.Kind = doc.kind

	var candidates []models.LooperSession
	for i, raw := range doc.sessions {
		session, errs := DecodeSession(raw)
		if len(errs) > 0 {
			name := rawSessionName(raw, i)
			for _, e := range errs {
				preview.Errors = append(preview.Errors, fmt.Sprintf("%s: %s", name, e))
			}
			continue
		}
		candidates = append(candidates, *session)
		preview.Sessions = append(preview.Sessions, PreviewSession{
			Name:      session.Name,
			VideoID:   session.VideoID,
			LoopCount: len(session.Loops),
		})
	}

	preview.SessionsCount = len(candidates)
	preview.Valid = preview.SessionsCount > 0
	if len(doc.sessions) == 0 {
		preview.Errors = append(preview.Errors, ErrEmptyImport.Error())
	}
	if len(candidates) > 0 {
		preview.Conflicts = f.conflicts.CheckForConflicts(ConflictContext{Candidates: candidates})
	}
	return preview
}

// rawSessionName extracts a display name for error messages.
func rawSessionName(raw json.RawMessage, index int) string {
	var probe struct {
		Name any `json:"name"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil {
		if s, ok := probe.Name.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return fmt.Sprintf("Session %d", index+1)
}

func joinFailures(failures []ImportFailure) string {
	parts := make([]string, len(failures))
	for i, fl := range failures {
		parts[i] = fmt.Sprintf("%s (%s)", fl.Name, fl.Error)
	}
	return strings.Join(parts, ", ")
}
