package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/valter-silva-au/looper/internal/core"
	"github.com/valter-silva-au/looper/internal/observability"
	"github.com/valter-silva-au/looper/internal/storage"
	"github.com/valter-silva-au/looper/pkg/models"
)

// eventSink adapts the JSONL log to core.EventLogger.
type eventSink struct {
	log observability.EventLog
}

func (s eventSink) LogEvent(eventType string, data map[string]any) error {
	return s.log.Write(observability.Event{Type: eventType, Data: data})
}

type testEnv struct {
	dir     string
	storeAt string
	store   storage.SessionStoreManager
}

// newTestEnv wires real services over a temporary file store and restores
// the package globals when the test ends.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	storeAt := filepath.Join(dir, "store")
	backend, err := storage.NewFileBackend(storeAt)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	store := storage.NewSessionStoreManager(backend)

	evLog, err := observability.NewJSONLEventLog(filepath.Join(dir, observability.EventLogFileName))
	if err != nil {
		t.Fatalf("NewJSONLEventLog: %v", err)
	}
	sink := eventSink{log: evLog}

	mgr, err := core.NewSessionManager(store, core.SessionManagerOptions{Events: sink})
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}

	origBase, origCfg, origMgr, origFacade := BasePath, Config, SessionMgr, Facade
	origLog, origCalc, origWatcher := EventLog, MetricsCalc, OpenWatcher
	t.Cleanup(func() {
		BasePath, Config, SessionMgr, Facade = origBase, origCfg, origMgr, origFacade
		EventLog, MetricsCalc, OpenWatcher = origLog, origCalc, origWatcher
		_ = evLog.Close()
		_ = backend.Close()
	})

	cfg := core.DefaultGlobalConfig()
	cfg.ExportDir = dir
	BasePath = dir
	Config = cfg
	SessionMgr = mgr
	Facade = core.NewSessionFacade(mgr, core.FacadeOptions{Events: sink})
	EventLog = evLog
	MetricsCalc = observability.NewMetricsCalculator(evLog)
	OpenWatcher = nil

	return &testEnv{dir: dir, storeAt: storeAt, store: store}
}

// execute runs the root command with fresh flag values.
func execute(stdin string, args ...string) (string, string, error) {
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// mustCreate creates a session through the CLI and returns it.
func mustCreate(t *testing.T, name, video string) models.LooperSession {
	t.Helper()
	if _, _, err := execute("", "session", "create", name, "--video", video, "--title", name+" video", "--duration", "3:30"); err != nil {
		t.Fatalf("session create %q: %v", name, err)
	}
	for _, s := range Facade.State().Sessions {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("session %q not found after create", name)
	return models.LooperSession{}
}

func mustAddLoop(t *testing.T, sessionID, name, start, end string) models.LoopSegment {
	t.Helper()
	if _, _, err := execute("", "loop", "add", sessionID, "--name", name, "--start", start, "--end", end); err != nil {
		t.Fatalf("loop add: %v", err)
	}
	s := lookupSession(sessionID)
	for _, l := range s.Loops {
		if l.Name == name {
			return l
		}
	}
	t.Fatalf("loop %q not found", name)
	return models.LoopSegment{}
}
