package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/valter-silva-au/looper/internal/storage"
	"github.com/valter-silva-au/looper/pkg/models"
)

var errNoSessions = errors.New("Aucune session disponible (créez-en une avec 'looper session create')")

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	pickerSelectedTitle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(lipgloss.Color("62")).
				Foreground(lipgloss.Color("62")).
				Bold(true).
				Padding(0, 0, 0, 1)

	pickerSelectedDesc = pickerSelectedTitle.
				Bold(false).
				Foreground(lipgloss.Color("241"))

	pickerStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// sessionItem wraps a session for the list component.
type sessionItem struct {
	session models.LooperSession
}

func (i sessionItem) FilterValue() string {
	return i.session.Name + " " + i.session.VideoTitle + " " + strings.Join(i.session.Tags, " ")
}
func (i sessionItem) Title() string {
	if i.session.IsActive {
		return "● " + i.session.Name
	}
	return i.session.Name
}
func (i sessionItem) Description() string {
	return fmt.Sprintf("%s | %d %s | %s",
		i.session.VideoTitle,
		len(i.session.Loops),
		plural(len(i.session.Loops), "boucle"),
		ago(i.session.UpdatedAt),
	)
}

// Message types
type (
	storeChangedMsg struct{}
	watchErrMsg     struct{ error }
)

type pickerModel struct {
	list    list.Model
	watcher *storage.Watcher
	status  string
	chosen  string
}

func newPickerModel(sessions []models.LooperSession, watcher *storage.Watcher) pickerModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = pickerSelectedTitle
	delegate.Styles.SelectedDesc = pickerSelectedDesc

	l := list.New(sessionItems(sessions), delegate, 0, 0)
	l.Title = "Sessions"
	l.Styles.Title = pickerTitleStyle
	l.SetStatusBarItemName("session", "sessions")
	return pickerModel{list: l, watcher: watcher}
}

func sessionItems(sessions []models.LooperSession) []list.Item {
	items := make([]list.Item, len(sessions))
	for i, s := range sessions {
		items[i] = sessionItem{session: s}
	}
	return items
}

func (m pickerModel) Init() tea.Cmd {
	return m.waitForChange()
}

// waitForChange blocks until the store changes on disk.
func (m pickerModel) waitForChange() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case _, ok := <-m.watcher.Changes:
			if !ok {
				return nil
			}
			return storeChangedMsg{}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return watchErrMsg{err}
		}
	}
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-1)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(sessionItem); ok {
				m.chosen = item.session.ID
			}
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case storeChangedMsg:
		m.status = ""
		if err := SessionMgr.Reload(); err != nil {
			m.status = err.Error()
		}
		cmd := m.list.SetItems(sessionItems(Facade.State().Sessions))
		return m, tea.Batch(cmd, m.waitForChange())

	case watchErrMsg:
		m.status = msg.Error()
		return m, m.waitForChange()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	view := m.list.View()
	if m.status != "" {
		view += "\n" + pickerStatusStyle.Render(m.status)
	}
	return view
}

// runPicker shows the interactive session list and returns the chosen
// session ID, or "" when the user quits without choosing.
func runPicker(in io.Reader, out io.Writer) (string, error) {
	sessions := Facade.State().Sessions
	if len(sessions) == 0 {
		return "", errNoSessions
	}

	var watcher *storage.Watcher
	if OpenWatcher != nil {
		w, err := OpenWatcher()
		if err != nil {
			logger().Warn("store watcher unavailable, picker will not refresh", "error", err)
		} else {
			w.Start()
			defer func() { _ = w.Stop() }()
			watcher = w
		}
	}

	p := tea.NewProgram(newPickerModel(sessions, watcher),
		tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("running session picker: %w", err)
	}
	return final.(pickerModel).chosen, nil
}
