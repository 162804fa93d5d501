package watchtui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/TheSmartAz/zaoya-sub000/internal/lifecycle"
	"github.com/TheSmartAz/zaoya-sub000/internal/model"
	"github.com/TheSmartAz/zaoya-sub000/internal/reconcile"
	"github.com/TheSmartAz/zaoya-sub000/internal/session"
	"github.com/TheSmartAz/zaoya-sub000/internal/streamclient"
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Approve key.Binding
	Dismiss key.Binding
	Retry   key.Binding
	Abort   key.Binding
	Step    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k")),
		Down:    key.NewBinding(key.WithKeys("down", "j")),
		Approve: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "approve")),
		Dismiss: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dismiss")),
		Retry:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Abort:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "abort")),
		Step:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "step")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// Model is the bubbletea model for the zaoya watch TUI. It renders the live
// build timeline and the pending-plan approval box, and translates
// keypresses into lifecycle calls.
type Model struct {
	width  int
	height int

	projectName string

	ctl   *lifecycle.Controller
	rec   *reconcile.Reconciler
	store *session.Store

	eventCh chan any

	// Snapshots taken from the reconciler/store on change notifications;
	// the view never reads shared state directly.
	timeline  []model.LiveTaskMessage
	pending   *model.PendingBuildPlan
	building  bool
	streamErr string
	record    *model.BuildSession

	health    streamclient.Health
	healthMsg string

	cursor    int
	spin      spinner.Model
	input     textinput.Model
	typing    bool
	actionErr error
	quitting  bool
	keys      keyMap
}

func NewModel(projectName string, ctl *lifecycle.Controller, rec *reconcile.Reconciler, store *session.Store, eventCh chan any) Model {
	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = runningStyle

	input := textinput.New()
	input.Placeholder = "message for the next step"
	input.CharLimit = 500

	return Model{
		projectName: projectName,
		ctl:         ctl,
		rec:         rec,
		store:       store,
		eventCh:     eventCh,
		health:      streamclient.HealthIdle,
		spin:        spin,
		input:       input,
		keys:        defaultKeyMap(),
	}
}

func waitForEvent(ch chan any) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ev
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForEvent(m.eventCh))
}

// refresh re-snapshots reconciler and store state.
func (m *Model) refresh() {
	m.timeline = m.rec.Timeline()
	m.pending = m.rec.Pending()
	m.building = m.rec.Active()
	m.streamErr = m.rec.StreamError()
	m.record = m.store.Current()
	if m.cursor >= len(m.timeline) {
		m.cursor = len(m.timeline) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case TimelineChangedMsg:
		m.refresh()
		return m, waitForEvent(m.eventCh)

	case HealthMsg:
		m.health = msg.Health
		m.healthMsg = msg.Message
		return m, waitForEvent(m.eventCh)

	case SessionUpdatedMsg:
		m.record = msg.Session
		return m, waitForEvent(m.eventCh)

	case actionDoneMsg:
		m.actionErr = msg.err
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.typing {
		switch msg.String() {
		case "esc":
			m.typing = false
			m.input.Blur()
			m.input.Reset()
			return m, nil
		case "enter":
			text := m.input.Value()
			m.typing = false
			m.input.Blur()
			m.input.Reset()
			return m, m.stepCmd(text)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.timeline)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Approve):
		if m.pending == nil {
			return m, nil
		}
		return m, m.approveCmd()

	case key.Matches(msg, m.keys.Dismiss):
		if m.pending == nil {
			return m, nil
		}
		return m, m.dismissCmd()

	case key.Matches(msg, m.keys.Retry):
		target := m.selectedFailedTask()
		if target == "" {
			return m, nil
		}
		return m, m.retryCmd(target)

	case key.Matches(msg, m.keys.Abort):
		if !m.building {
			return m, nil
		}
		return m, m.abortCmd()

	case key.Matches(msg, m.keys.Step):
		m.typing = true
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

// selectedFailedTask returns the cursor entry's id when it is retryable.
func (m Model) selectedFailedTask() string {
	if m.cursor < 0 || m.cursor >= len(m.timeline) {
		return ""
	}
	entry := m.timeline[m.cursor]
	if entry.Status != model.LiveFailed {
		return ""
	}
	return entry.ID
}

func (m Model) approveCmd() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		return actionDoneMsg{action: "approve", err: ctl.Approve(context.Background(), nil)}
	}
}

func (m Model) dismissCmd() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		return actionDoneMsg{action: "dismiss", err: ctl.Dismiss()}
	}
}

func (m Model) retryCmd(taskID string) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		return actionDoneMsg{action: "retry", err: ctl.RetryPage(context.Background(), taskID)}
	}
}

func (m Model) abortCmd() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		return actionDoneMsg{action: "abort", err: ctl.Abort(context.Background())}
	}
}

func (m Model) stepCmd(message string) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		_, err := ctl.Step(context.Background(), message)
		return actionDoneMsg{action: "step", err: err}
	}
}
