package core

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/looper/pkg/models"
)

func sessionJSON(id, name, videoID string) string {
	return `{"id":"` + id + `","name":"` + name + `","videoId":"` + videoID +
		`","videoTitle":"Titre","videoDuration":120,"loops":[{"name":"Intro","startTime":0,"endTime":10}],"isActive":true}`
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Solo de guitare", "solo-de-guitare"},
		{"  Spaces   everywhere  ", "spaces-everywhere"},
		{"Ça: marche? (oui)", "a-marche-oui"},
		{strings.Repeat("abc ", 20), "abc-abc-abc-abc-abc-abc-abc-ab"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportFileName(t *testing.T) {
	at := time.Date(2026, 5, 2, 14, 7, 0, 0, time.UTC)
	tests := []struct {
		name      string
		session   string
		selection bool
		want      string
	}{
		{"all", "", false, "looper-sessions-20260502-1407.json"},
		{"selection", "", true, "looper-sessions-selection-20260502-1407.json"},
		{"single", "Mon Solo", false, "looper-session-mon-solo-20260502-1407.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExportFileName(at, tt.session, tt.selection); got != tt.want {
				t.Errorf("ExportFileName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckImportFile(t *testing.T) {
	if err := CheckImportFile("backup.JSON", 100, 0); err != nil {
		t.Errorf("uppercase extension rejected: %v", err)
	}
	if err := CheckImportFile("backup.txt", 100, 0); !errors.Is(err, ErrInvalidExtension) {
		t.Errorf("error = %v, want ErrInvalidExtension", err)
	}

	err := CheckImportFile("big.json", 11*1024*1024, DefaultMaxImportSize)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("error = %v, want ErrFileTooLarge", err)
	}
	if err.Error() != "Le fichier est trop volumineux (maximum 10MB)" {
		t.Errorf("message = %q", err.Error())
	}
	if err := CheckImportFile("exact.json", DefaultMaxImportSize, DefaultMaxImportSize); err != nil {
		t.Errorf("file at the limit rejected: %v", err)
	}
}

func TestDecodeSession_ShapeErrors(t *testing.T) {
	_, errs := DecodeSession(json.RawMessage(`{"id":"","name":5,"videoTitle":"t"}`))
	if len(errs) != 4 {
		t.Errorf("expected 4 shape errors (id, name, videoId, loops), got %v", errs)
	}
	if _, errs := DecodeSession(json.RawMessage(`[1,2]`)); len(errs) != 1 {
		t.Errorf("non-object should give one error, got %v", errs)
	}
	s, errs := DecodeSession(json.RawMessage(sessionJSON("s1", "Alpha", "dQw4w9WgXcQ")))
	if len(errs) != 0 || s.Name != "Alpha" || len(s.Loops) != 1 {
		t.Errorf("decode valid session: %+v, %v", s, errs)
	}
}

func TestImportData_Single(t *testing.T) {
	f, _ := newTestFacade(t)
	doc := `{"exportedAt":"2026-01-01T00:00:00Z","version":"1.0","type":"single-session","session":` +
		sessionJSON("session_1_abc", "Alpha", "dQw4w9WgXcQ") + `}`

	res, err := f.ImportData([]byte(doc))
	if err != nil {
		t.Fatalf("ImportData: %v", err)
	}
	if res.Kind != ImportSingle || res.Count != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.Message != `Session "Alpha" importée avec succès` {
		t.Errorf("message = %q", res.Message)
	}

	got := res.Imported[0]
	if got.ID == "session_1_abc" {
		t.Error("imported session kept its original ID")
	}
	if got.IsActive {
		t.Error("imported session should be inactive")
	}
	if got.Loops[0].ID == "" {
		t.Error("missing loop ID not generated")
	}
	if got.CreatedAt.Year() == 2026 && got.CreatedAt.Month() == 1 {
		t.Error("timestamps not reset")
	}
	if len(f.State().Sessions) != 1 {
		t.Error("facade state not refreshed after import")
	}
}

func TestImportData_SameFileTwiceGetsDistinctIDs(t *testing.T) {
	f, _ := newTestFacade(t)
	doc := `{"type":"single-session","session":` + sessionJSON("s1", "Alpha", "dQw4w9WgXcQ") + `}`

	a, err := f.ImportData([]byte(doc))
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	b, err := f.ImportData([]byte(doc))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if a.Imported[0].ID == b.Imported[0].ID {
		t.Error("two imports share an ID")
	}
}

func TestImportData_MultiplePartialSuccess(t *testing.T) {
	f, _ := newTestFacade(t)
	doc := `{"type":"multiple-sessions","sessionsCount":4,"sessions":[` +
		sessionJSON("a", "Alpha", "dQw4w9WgXcQ") + `,` +
		sessionJSON("b", "Bravo", "dQw4w9WgXcQ") + `,` +
		`{"id":"c","name":"Cassé","loops":[]},` +
		sessionJSON("d", "Delta", "abcdefghijk") + `]}`

	res, err := f.ImportData([]byte(doc))
	if err != nil {
		t.Fatalf("ImportData: %v", err)
	}
	if res.Count != 3 || len(res.Failures) != 1 || !res.Partial {
		t.Fatalf("result = %+v", res)
	}
	if !strings.HasPrefix(res.Message, "3 sessions importées, 1 échecs: ") {
		t.Errorf("message = %q", res.Message)
	}
	if res.Failures[0].Name != "Cassé" || res.Failures[0].Index != 2 {
		t.Errorf("failure = %+v", res.Failures[0])
	}
	if len(f.State().Sessions) != 3 {
		t.Errorf("sessions = %d, want 3", len(f.State().Sessions))
	}
}

func TestImportData_MultipleAllSucceed(t *testing.T) {
	f, _ := newTestFacade(t)
	doc := `{"type":"multiple-sessions","sessions":[` +
		sessionJSON("a", "Alpha", "dQw4w9WgXcQ") + `,` + sessionJSON("b", "Bravo", "dQw4w9WgXcQ") + `]}`

	res, err := f.ImportData([]byte(doc))
	if err != nil {
		t.Fatalf("ImportData: %v", err)
	}
	if res.Message != "2 sessions importées avec succès" || res.Partial {
		t.Errorf("result = %+v", res)
	}
}

func TestImportData_Errors(t *testing.T) {
	f, _ := newTestFacade(t)
	tests := []struct {
		name string
		data string
		want error
	}{
		{"invalid json", `{"type":`, ErrInvalidJSON},
		{"empty", ``, ErrInvalidJSON},
		{"unknown type", `{"type":"playlist","sessions":[]}`, ErrUnsupportedExport},
		{"not an object", `42`, ErrUnrecognizedFormat},
		{"no sessions", `{"type":"multiple-sessions","sessions":[]}`, ErrEmptyImport},
		{"single without session", `{"type":"single-session"}`, ErrUnrecognizedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ImportData([]byte(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := f.ImportData([]byte(`{"type":"multiple-sessions","sessions":[{"name":"x"}]}`)); err == nil {
		t.Error("import with no valid session should fail")
	}
	if len(f.State().Sessions) != 0 {
		t.Error("failed imports stored sessions")
	}
}

func TestImportData_Legacy(t *testing.T) {
	f, _ := newTestFacade(t)
	doc := `{"exportedAt":"2025-01-01T00:00:00Z","sessions":[` + sessionJSON("legacy_1", "Ancienne", "dQw4w9WgXcQ") + `]}`

	res, err := f.ImportData([]byte(doc))
	if err != nil {
		t.Fatalf("ImportData: %v", err)
	}
	if res.Kind != ImportLegacy || res.Message != "1 sessions importées" {
		t.Errorf("result = %+v", res)
	}
	if st := f.State(); len(st.Sessions) != 1 || st.Sessions[0].ID != "legacy_1" {
		t.Errorf("legacy import should keep IDs: %+v", st.Sessions)
	}
}

func TestImportData_VersionedDocumentWithoutType(t *testing.T) {
	f, _ := newTestFacade(t)
	doc := `{"version":"1.0","sessions":[` + sessionJSON("s1", "Alpha", "dQw4w9WgXcQ") + `]}`

	if _, err := f.ImportData([]byte(doc)); !errors.Is(err, ErrUnrecognizedFormat) {
		t.Errorf("error = %v, want ErrUnrecognizedFormat", err)
	}
	if p := f.PreviewImport([]byte(doc)); p.Valid {
		t.Errorf("preview = %+v, want invalid", p)
	}
	if len(f.State().Sessions) != 0 {
		t.Error("versioned document without type was imported")
	}
}

func TestImportFile_Constraints(t *testing.T) {
	f, _ := newTestFacade(t)
	dir := t.TempDir()

	txt := filepath.Join(dir, "backup.txt")
	if err := os.WriteFile(txt, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ImportFile(txt); !errors.Is(err, ErrInvalidExtension) {
		t.Errorf("error = %v, want ErrInvalidExtension", err)
	}

	big := filepath.Join(dir, "big.json")
	if err := os.WriteFile(big, make([]byte, 11*1024*1024), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := f.ImportFile(big)
	if !errors.Is(err, ErrFileTooLarge) || !strings.Contains(err.Error(), "maximum 10MB") {
		t.Errorf("error = %v, want file too large with the limit", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ImportFile(bad); !errors.Is(err, ErrInvalidJSON) || err.Error() != "Fichier JSON invalide" {
		t.Errorf("error = %v, want Fichier JSON invalide", err)
	}
}

func TestExportThenImport_RoundTrip(t *testing.T) {
	src, _ := newTestFacade(t)
	_, _ = src.CreateSession(validParams("Alpha"))
	_, _ = src.AddLoop(testLoop("Intro", 0, 10))
	p := validParams("Bravo")
	p.VideoID = "abcdefghijk"
	b, _ := src.CreateSession(p)

	dir := t.TempDir()
	allPath, err := src.ExportAll(dir)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(allPath), "looper-sessions-") {
		t.Errorf("export name = %s", allPath)
	}

	data, err := os.ReadFile(allPath)
	if err != nil {
		t.Fatal(err)
	}
	var env models.ExportEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("export is not an envelope: %v", err)
	}
	if env.Type != models.ExportMultipleSessions || env.SessionsCount != 2 || env.Version != "1.0" {
		t.Errorf("envelope = %+v", env)
	}

	dst, _ := newTestFacade(t)
	res, err := dst.ImportFile(allPath)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if res.Count != 2 {
		t.Fatalf("imported %d, want 2", res.Count)
	}
	names := map[string]int{}
	for _, s := range dst.State().Sessions {
		names[s.Name] = len(s.Loops)
	}
	if names["Alpha"] != 1 || names["Bravo"] != 0 {
		t.Errorf("round trip lost data: %v", names)
	}

	single, err := src.ExportSession(dir, b.ID)
	if err != nil {
		t.Fatalf("ExportSession: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(single), "looper-session-bravo-") {
		t.Errorf("single export name = %s", single)
	}
	if _, err := src.ExportSession(dir, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}

	sel, err := src.ExportSelected(dir, []string{b.ID, "missing"})
	if err != nil {
		t.Fatalf("ExportSelected: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(sel), "looper-sessions-selection-") {
		t.Errorf("selection export name = %s", sel)
	}
	if _, err := src.ExportSelected(dir, []string{"missing"}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestPreviewImport(t *testing.T) {
	f, _ := newTestFacade(t)
	_, _ = f.CreateSession(validParams("Alpha"))

	doc := `{"type":"multiple-sessions","sessions":[` +
		sessionJSON("a", "ALPHA", "zzzzzzzzzzz") + `,` +
		sessionJSON("b", "Bravo", "dQw4w9WgXcQ") + `,` +
		`{"name":"Cassé"}]}`

	p := f.PreviewImport([]byte(doc))
	if !p.Valid || p.SessionsCount != 2 || p.Kind != ImportMultiple {
		t.Fatalf("preview = %+v", p)
	}
	if len(p.Errors) == 0 || !strings.HasPrefix(p.Errors[0], "Cassé: ") {
		t.Errorf("errors = %v", p.Errors)
	}

	var nameConflicts, videoConflicts int
	for _, c := range p.Conflicts {
		switch c.Type {
		case ConflictName:
			nameConflicts++
		case ConflictVideoID:
			videoConflicts++
		}
	}
	if nameConflicts != 1 || videoConflicts != 1 {
		t.Errorf("conflicts = %+v", p.Conflicts)
	}
	if len(f.State().Sessions) != 1 {
		t.Error("preview must not import")
	}

	if bad := f.PreviewImport([]byte("nope")); bad.Valid || len(bad.Errors) != 1 {
		t.Errorf("invalid JSON preview = %+v", bad)
	}
	if none := f.PreviewImport([]byte(`{"type":"multiple-sessions","sessions":[{"name":"x"}]}`)); none.Valid {
		t.Error("preview with no valid session should be invalid")
	}
}

const badLoopSession = `{"id":"s9","name":"Bad","videoId":"dQw4w9WgXcQ","videoTitle":"Titre","videoDuration":120,` +
	`"loops":[{"name":"","startTime":50,"endTime":10}]}`

func TestDecodeSession_RejectsInvalidLoops(t *testing.T) {
	_, errs := DecodeSession(json.RawMessage(badLoopSession))
	if len(errs) != 3 {
		t.Fatalf("errors = %v, want name, order and duration violations", errs)
	}
	for _, e := range errs {
		if !strings.HasPrefix(e, "Boucle 1: ") {
			t.Errorf("error %q not labelled with the loop position", e)
		}
	}
}

func TestImportData_SingleWithInvalidLoopFails(t *testing.T) {
	f, _ := newTestFacade(t)
	doc := `{"version":"1.0","type":"single-session","session":` + badLoopSession + `}`

	if _, err := f.ImportData([]byte(doc)); err == nil {
		t.Fatal("import of a session with an invalid loop succeeded")
	}
	if n := len(f.State().Sessions); n != 0 {
		t.Errorf("sessions stored = %d, want 0", n)
	}
}

func TestImportData_InvalidLoopIsPerSessionFailure(t *testing.T) {
	f, _ := newTestFacade(t)
	doc := `{"version":"1.0","type":"multiple-sessions","sessions":[` +
		sessionJSON("a", "Alpha", "dQw4w9WgXcQ") + `,` + badLoopSession + `]}`

	res, err := f.ImportData([]byte(doc))
	if err != nil {
		t.Fatalf("ImportData: %v", err)
	}
	if res.Count != 1 || !res.Partial || len(res.Failures) != 1 {
		t.Fatalf("result = %+v, want 1 imported and 1 failure", res)
	}
	if res.Failures[0].Name != "Bad" || !strings.Contains(res.Failures[0].Error, "Le nom est requis") {
		t.Errorf("failure = %+v", res.Failures[0])
	}
}

func TestImportData_NormalizesSpeedAndLoopTimestamps(t *testing.T) {
	f, _ := newTestFacade(t)
	// sessionJSON carries no globalPlaybackSpeed and no loop timestamps.
	doc := `{"version":"1.0","type":"single-session","session":` + sessionJSON("s1", "Alpha", "dQw4w9WgXcQ") + `}`

	res, err := f.ImportData([]byte(doc))
	if err != nil {
		t.Fatalf("ImportData: %v", err)
	}
	got := res.Imported[0]
	if got.GlobalPlaybackSpeed != 1.0 {
		t.Errorf("global speed = %g, want the default 1", got.GlobalPlaybackSpeed)
	}
	l := got.Loops[0]
	if l.CreatedAt.IsZero() || l.UpdatedAt.IsZero() {
		t.Errorf("loop timestamps not stamped: %+v", l)
	}
	if !l.CreatedAt.Equal(got.CreatedAt) {
		t.Errorf("loop CreatedAt = %v, want import time %v", l.CreatedAt, got.CreatedAt)
	}
	for _, s := range f.State().Sessions {
		if res := ValidateLoop(s.Loops[0]); !res.Valid {
			t.Errorf("stored loop invalid: %v", res.Errors)
		}
	}
}

func TestPreviewImport_ReportsInvalidLoops(t *testing.T) {
	f, _ := newTestFacade(t)

	p := f.PreviewImport([]byte(`{"version":"1.0","type":"single-session","session":` + badLoopSession + `}`))
	if p.Valid || p.SessionsCount != 0 {
		t.Fatalf("preview = %+v, want invalid", p)
	}
	if len(p.Errors) != 3 || !strings.HasPrefix(p.Errors[0], "Bad: Boucle 1: ") {
		t.Errorf("errors = %v", p.Errors)
	}
}
