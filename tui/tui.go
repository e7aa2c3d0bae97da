// Package tui provides the interactive terminal front end: a profile
// list, a live status bar, and a log pane fed by supervisor events.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yllada/ovpnctl/common"
	"github.com/yllada/ovpnctl/keyring"
	"github.com/yllada/ovpnctl/vpn"
)

// maxLogLines bounds the log pane buffer.
const maxLogLines = 1000

type eventMsg struct {
	ev vpn.Event
}

type profilesChangedMsg struct{}

// Model is the bubbletea model for the interactive mode.
type Model struct {
	sup        *vpn.Supervisor
	profileDir string

	profiles []vpn.Profile
	cursor   int

	state  vpn.State
	info   vpn.Info
	status string

	lines    []string
	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
	width    int
	height   int

	events         chan vpn.Event
	profileChanges chan struct{}
	watcher        *vpn.ProfileWatcher
}

// New builds the model, subscribes to supervisor events, and starts
// watching the profile directory.
func New(sup *vpn.Supervisor, profileDir string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	m := Model{
		sup:            sup,
		profileDir:     profileDir,
		state:          sup.State(),
		info:           sup.Info(),
		spinner:        sp,
		events:         sup.Subscribe(),
		profileChanges: make(chan struct{}, 1),
	}
	m.reloadProfiles()

	changes := m.profileChanges
	watcher, err := vpn.NewProfileWatcher(profileDir, func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	if err != nil {
		common.LogWarn("profile watcher unavailable", "error", err)
	} else {
		watcher.Start()
		m.watcher = watcher
	}
	return m
}

// Close releases the event subscription and the directory watcher.
func (m *Model) Close() {
	if m.watcher != nil {
		m.watcher.Stop()
		m.watcher = nil
	}
	if m.events != nil {
		m.sup.Unsubscribe(m.events)
		m.events = nil
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.waitForProfileChange(), m.spinner.Tick)
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg{ev: ev}
	}
}

func (m Model) waitForProfileChange() tea.Cmd {
	changes := m.profileChanges
	return func() tea.Msg {
		<-changes
		return profilesChangedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		m.setViewportContent()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.applyEvent(msg.ev)
		return m, m.waitForEvent()

	case profilesChangedMsg:
		m.reloadProfiles()
		m.resize()
		return m, m.waitForProfileChange()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		// Tear the tunnel down with us; the supervisor dies with the
		// program.
		if m.state == vpn.StateConnecting || m.state == vpn.StateConnected {
			_ = m.sup.Disconnect()
		}
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.profiles)-1 {
			m.cursor++
		}
		return m, nil

	case "enter", "c":
		m.connectSelected()
		return m, nil

	case "d":
		if err := m.sup.Disconnect(); err != nil {
			m.status = err.Error()
		}
		return m, nil

	case "r":
		m.reloadProfiles()
		m.resize()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) connectSelected() {
	if len(m.profiles) == 0 {
		m.status = "no profiles in " + m.profileDir
		return
	}
	if m.state != vpn.StateDisconnected {
		m.status = "a session is already active"
		return
	}
	creds, err := keyring.Load()
	if err != nil {
		m.status = "no stored credentials (run: ovpnctl credentials set)"
		return
	}
	profile := m.profiles[m.cursor]
	if err := m.sup.Connect(profile, creds.Username, creds.Password); err != nil {
		m.status = err.Error()
	}
}

func (m *Model) applyEvent(ev vpn.Event) {
	switch ev := ev.(type) {
	case vpn.StateChange:
		m.state = ev.New
		if ev.New == vpn.StateConnecting {
			m.status = ""
		}
	case vpn.InfoUpdate:
		m.info = ev.Info
	case vpn.LogLine:
		m.lines = append(m.lines, "["+ev.At.Format("15:04:05")+"] "+ev.Text)
		if len(m.lines) > maxLogLines {
			m.lines = m.lines[len(m.lines)-maxLogLines:]
		}
		m.setViewportContent()
	case vpn.Failure:
		m.status = ev.Err.Error()
	}
}

func (m *Model) reloadProfiles() {
	profiles, err := vpn.DiscoverProfiles(m.profileDir)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.profiles = profiles
	if m.cursor >= len(m.profiles) {
		m.cursor = len(m.profiles) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// resize recomputes the log pane height from the fixed chrome around
// it.
func (m *Model) resize() {
	if !m.ready {
		return
	}
	chrome := 8 + len(m.profiles)
	height := m.height - chrome
	if height < 3 {
		height = 3
	}
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(m.width, height)
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = height
	}
}

func (m *Model) setViewportContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Starting..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("ovpnctl") + "\n\n")
	b.WriteString(m.statusBar() + "\n")

	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status))
	}
	b.WriteString("\n\n")

	b.WriteString(m.profileList())
	b.WriteString("\n")

	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", max(m.width, 1))) + "\n")
	b.WriteString(helpStyle.Render("  q: quit • ↑/↓: select • enter: connect • d: disconnect • r: reload"))

	return b.String()
}

func (m Model) statusBar() string {
	badge := stateBadge(m.state)
	if m.state == vpn.StateConnecting || m.state == vpn.StateDisconnecting {
		badge = m.spinner.View() + badge
	}
	if summary := m.info.Summary(); summary != "" {
		return badge + "  " + summary
	}
	return badge
}

func (m Model) profileList() string {
	if len(m.profiles) == 0 {
		return helpStyle.Render("  (no profiles in " + m.profileDir + ")\n")
	}
	var b strings.Builder
	for i, p := range m.profiles {
		line := fmt.Sprintf("%s (%s)", p.Name, common.FormatBytes(uint64(p.Size)))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(" ▸ "+line+" ") + "\n")
		} else {
			b.WriteString("   " + line + "\n")
		}
	}
	return b.String()
}

func stateBadge(s vpn.State) string {
	switch s {
	case vpn.StateConnected:
		return badgeConnected.Render(s.String())
	case vpn.StateConnecting, vpn.StateDisconnecting:
		return badgeTransition.Render(s.String())
	default:
		return badgeDisconnected.Render(s.String())
	}
}

// Run starts the interactive mode and blocks until the user quits.
func Run(sup *vpn.Supervisor, profileDir string) error {
	m := New(sup, profileDir)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
