package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/looper/pkg/models"
)

func exportedPath(t *testing.T, out string) string {
	t.Helper()
	const prefix = "Export écrit dans "
	line := strings.TrimSpace(out)
	if !strings.HasPrefix(line, prefix) {
		t.Fatalf("unexpected export output %q", out)
	}
	return strings.TrimPrefix(line, prefix)
}

func TestExport_Variants(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreate(t, "Alpha", "dQw4w9WgXcQ")
	b := mustCreate(t, "Beta", "9bZkp7q19f0")
	mustAddLoop(t, a.ID, "Intro", "0", "10")

	tests := []struct {
		name     string
		args     []string
		wantType models.ExportType
		wantN    int
	}{
		{"all by default", []string{"export"}, models.ExportMultipleSessions, 2},
		{"single id", []string{"export", "--id", a.ID}, models.ExportSingleSession, 1},
		{"selection", []string{"export", "--id", a.ID, "--id", b.ID}, models.ExportMultipleSessions, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute("", tt.args...)
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			path := exportedPath(t, out)
			if filepath.Dir(path) != env.dir {
				t.Errorf("export written to %s, want dir %s", path, env.dir)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading export: %v", err)
			}
			var doc models.ExportEnvelope
			if err := json.Unmarshal(data, &doc); err != nil {
				t.Fatalf("decoding export: %v", err)
			}
			if doc.Type != tt.wantType {
				t.Errorf("type = %q, want %q", doc.Type, tt.wantType)
			}
			n := len(doc.Sessions)
			if doc.Session != nil {
				n = 1
			}
			if n != tt.wantN {
				t.Errorf("sessions = %d, want %d", n, tt.wantN)
			}
		})
	}
}

func TestExport_Errors(t *testing.T) {
	newTestEnv(t)
	a := mustCreate(t, "Alpha", "dQw4w9WgXcQ")

	if _, _, err := execute("", "export", "--all", "--id", a.ID); err == nil {
		t.Error("expected error for --all with --id")
	}
	if _, _, err := execute("", "export", "--id", "session_missing"); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestExport_DirFlag(t *testing.T) {
	newTestEnv(t)
	mustCreate(t, "Alpha", "dQw4w9WgXcQ")
	dir := t.TempDir()

	out, _, err := execute("", "export", "--dir", dir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filepath.Dir(exportedPath(t, out)) != dir {
		t.Errorf("output = %q, want file in %s", out, dir)
	}
}

func TestImport_RoundTrip(t *testing.T) {
	newTestEnv(t)
	a := mustCreate(t, "Alpha", "dQw4w9WgXcQ")
	mustAddLoop(t, a.ID, "Intro", "0", "10")

	out, _, err := execute("", "export", "--id", a.ID)
	if err != nil {
		t.Fatal(err)
	}
	path := exportedPath(t, out)

	out, _, err = execute("", "import", "--preview", path)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	for _, want := range []string{"single-session", "Alpha", "existe déjà", "est déjà utilisée"} {
		if !strings.Contains(out, want) {
			t.Errorf("preview output missing %q:\n%s", want, out)
		}
	}
	if n := len(Facade.State().Sessions); n != 1 {
		t.Fatalf("preview imported sessions: %d", n)
	}

	out, _, err = execute("", "import", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "importée avec succès") {
		t.Errorf("import output = %q", out)
	}
	sessions := Facade.State().Sessions
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[1].ID == a.ID || len(sessions[1].Loops) != 1 {
		t.Errorf("imported session = %+v", sessions[1])
	}
}

func TestImport_InvalidFiles(t *testing.T) {
	env := newTestEnv(t)

	notJSON := filepath.Join(env.dir, "notes.txt")
	if err := os.WriteFile(notJSON, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute("", "import", notJSON); err == nil {
		t.Error("expected error for non-JSON extension")
	}

	broken := filepath.Join(env.dir, "broken.json")
	if err := os.WriteFile(broken, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	out, _, err := execute("", "import", "--preview", broken)
	if err != nil {
		t.Fatalf("preview of a broken file should report, not fail: %v", err)
	}
	if !strings.Contains(out, "Fichier invalide") {
		t.Errorf("preview output = %q", out)
	}
	if _, _, err := execute("", "import", broken); err == nil {
		t.Error("expected error importing a broken file")
	}
}
