package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"codeberg.org/mutker/vmctl/internal/api"
	"codeberg.org/mutker/vmctl/internal/core"
)

// maxEvents bounds the event pane; older entries scroll out.
const maxEvents = 6

// Model is the main Bubbletea model
type Model struct {
	engine   *core.Engine
	sub      <-chan struct{}
	snapshot *core.Snapshot
	degraded core.DegradedStatus
	cursor   int
	spinner  spinner.Model
	events   []eventEntry
	width    int
	height   int
}

// eventEntry is one line of the activity pane.
type eventEntry struct {
	At   time.Time
	Text string
	Err  bool
}

// Messages for async updates
type snapshotMsg struct{}

// New creates a Model bound to a running engine
func New(engine *core.Engine) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return Model{
		engine:   engine,
		sub:      engine.Subscribe(),
		snapshot: engine.Current(),
		degraded: engine.Degraded(),
		spinner:  s,
	}
}

// waitForUpdate bridges the engine's subscription channel into a tea.Msg.
// The command re-arms after every snapshotMsg, so notifications coalesce
// while the UI is busy instead of queueing.
func waitForUpdate(sub <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-sub
		return snapshotMsg{}
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.sub))
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		return m.handleSnapshot()
	}

	return m, nil
}

// handleSnapshot adopts the latest snapshot, logs observed transitions and
// re-arms the subscription listener.
func (m Model) handleSnapshot() (tea.Model, tea.Cmd) {
	prev := m.snapshot
	m.snapshot = m.engine.Current()

	for _, vm := range m.snapshot.VMs() {
		old, ok := prev.Get(vm.ID)
		if !ok || old.State == vm.State || vm.State == core.StateTransitioning {
			continue
		}
		if vm.LastError != "" {
			m = m.logError(fmt.Sprintf("%s: command failed (%s), back to %s", vm.Name, vm.LastError, vm.State))
			continue
		}
		m = m.logEvent(fmt.Sprintf("%s: %s → %s", vm.Name, old.State, vm.State))
	}

	wasDegraded := m.degraded.Degraded
	m.degraded = m.engine.Degraded()
	if m.degraded.Degraded && !wasDegraded {
		m = m.logError("connection degraded: " + m.degraded.Reason)
	}
	if !m.degraded.Degraded && wasDegraded {
		m = m.logEvent("connection recovered")
	}

	if max := m.snapshot.Len() - 1; m.cursor > max {
		m.cursor = max
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	return m, waitForUpdate(m.sub)
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < m.snapshot.Len()-1 {
			m.cursor++
		}

	case "s":
		return m.submit(api.ActionStart), nil

	case "S":
		return m.submit(api.ActionShutdown), nil

	case "x":
		return m.submit(api.ActionStop), nil

	case "p":
		return m.submit(api.ActionSuspend), nil

	case "r":
		m.engine.Refresh()
		return m.logEvent("refresh requested"), nil
	}

	return m, nil
}

// submit dispatches a power action for the selected VM. Precondition
// failures come back synchronously and land straight in the event pane;
// execution results arrive later through snapshot updates.
func (m Model) submit(action api.PowerAction) Model {
	vms := m.snapshot.VMs()
	if m.cursor >= len(vms) {
		return m
	}
	vm := vms[m.cursor]

	if _, err := m.engine.Submit(vm.ID, action); err != nil {
		return m.logError(fmt.Sprintf("%s: %v", vm.Name, err))
	}

	return m.logEvent(fmt.Sprintf("%s requested for %s", action, vm.Name))
}

func (m Model) logEvent(text string) Model {
	return m.appendEvent(eventEntry{At: time.Now(), Text: text})
}

func (m Model) logError(text string) Model {
	return m.appendEvent(eventEntry{At: time.Now(), Text: text, Err: true})
}

func (m Model) appendEvent(e eventEntry) Model {
	m.events = append(m.events, e)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
	return m
}
