package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/protocol"
	"github.com/muurk/lifxlan/internal/registry"
)

// actionTimeout bounds one key-triggered network action.
const actionTimeout = 5 * time.Second

// eventMsg carries a registry event into the update loop.
type eventMsg registry.Event

// eventsClosedMsg is sent once the registry closes the subscription.
type eventsClosedMsg struct{}

// tickMsg triggers a periodic refresh.
type tickMsg time.Time

// actionDoneMsg reports the outcome of a refresh, toggle or rename.
type actionDoneMsg struct {
	action string
	target string
	err    error
}

type watchKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Power   key.Binding
	Label   key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Power, k.Label, k.Refresh, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// WatchModel is a live device table driven by registry events.
type WatchModel struct {
	ctx      context.Context
	reg      *registry.Registry
	subID    uuid.UUID
	events   <-chan registry.Event
	interval time.Duration

	devices map[string]device.Snapshot
	order   []string // MACs, sorted

	Table   table.Model
	Spinner spinner.Model
	Input   textinput.Model
	Help    help.Model
	Keys    watchKeyMap

	editing string // MAC being relabelled
	busy    int
	status  string
	Width   int
	Height  int
}

// NewWatchModel subscribes to reg and seeds the table with its current
// contents. interval is the background refresh period; zero disables it.
// Call Close when the program exits.
func NewWatchModel(ctx context.Context, reg *registry.Registry, interval time.Duration) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.Placeholder = "New label"
	input.CharLimit = protocol.LabelSize
	input.Width = 40

	width, height := TerminalSize()
	t := table.New(
		table.WithColumns(watchColumns(width)),
		table.WithFocused(true),
		table.WithHeight(max(height-8, 3)),
	)

	id, events := reg.Subscribe()

	m := WatchModel{
		ctx:      ctx,
		reg:      reg,
		subID:    id,
		events:   events,
		interval: interval,
		devices:  make(map[string]device.Snapshot),
		Table:    t,
		Spinner:  s,
		Input:    input,
		Help:     help.New(),
		Keys: watchKeyMap{
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "up"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "down"),
			),
			Power: key.NewBinding(
				key.WithKeys("p"),
				key.WithHelp("p", "toggle power"),
			),
			Label: key.NewBinding(
				key.WithKeys("l"),
				key.WithHelp("l", "rename"),
			),
			Refresh: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "refresh"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
		busy:   1, // the refresh issued by Init
		Width:  width,
		Height: height,
	}

	for _, e := range reg.GetList(registry.CapAny) {
		m.devices[e.Base().MAC()] = e.Snapshot()
	}
	m.syncRows()
	return m
}

// Close drops the registry subscription.
func (m WatchModel) Close() {
	m.reg.Unsubscribe(m.subID)
}

// watchColumns spreads width over the device columns.
func watchColumns(width int) []table.Column {
	avail := max(width-4-2*len(deviceColumns), 40)
	// MAC and IP are fixed width, the rest share what is left
	macW, ipW, powerW, colorW := 17, 21, 5, 7
	rest := max(avail-macW-ipW-powerW-colorW, 16)
	return []table.Column{
		{Title: deviceColumns[0], Width: macW},
		{Title: deviceColumns[1], Width: rest / 2},
		{Title: deviceColumns[2], Width: rest - rest/2},
		{Title: deviceColumns[3], Width: powerW},
		{Title: deviceColumns[4], Width: colorW},
		{Title: deviceColumns[5], Width: ipW},
	}
}

// syncRows rebuilds the table rows from the snapshot map, sorted by MAC.
func (m *WatchModel) syncRows() {
	order := make([]string, 0, len(m.devices))
	for mac := range m.devices {
		order = append(order, mac)
	}
	sort.Strings(order)
	m.order = order

	rows := make([]table.Row, len(m.order))
	for i, mac := range m.order {
		rows[i] = table.Row(deviceRow(m.devices[mac]))
	}
	m.Table.SetRows(rows)
	if c := m.Table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.Table.SetCursor(len(rows) - 1)
	}
}

// Rows returns the MACs currently shown, in display order.
func (m WatchModel) Rows() []string {
	return append([]string(nil), m.order...)
}

// Editing reports whether the rename prompt is open.
func (m WatchModel) Editing() bool {
	return m.editing != ""
}

func (m WatchModel) selected() (device.Entity, bool) {
	i := m.Table.Cursor()
	if i < 0 || i >= len(m.order) {
		return nil, false
	}
	return m.reg.Get(m.order[i])
}

func waitForEvent(events <-chan registry.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func tick(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// action runs fn with a bounded context and reports the outcome.
func (m WatchModel) action(name, target string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, actionTimeout)
		defer cancel()
		return actionDoneMsg{action: name, target: target, err: fn(ctx)}
	}
}

func (m WatchModel) refresh() tea.Cmd {
	reg := m.reg
	return m.action("refresh", "all devices", func(ctx context.Context) error {
		if err := reg.FetchMetadata(ctx); err != nil {
			return err
		}
		return reg.Refresh(ctx)
	})
}

// Init starts the spinner, the event pump, the ticker and a first refresh.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, waitForEvent(m.events), tick(m.interval), m.refresh())
}

// Update handles messages and updates the model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetColumns(watchColumns(msg.Width))
		m.Table.SetHeight(max(msg.Height-8, 3))
		m.Help.Width = msg.Width
		return m, nil

	case eventMsg:
		if msg.Kind == registry.EventUnregistered || !m.inView(msg.MAC) {
			delete(m.devices, msg.MAC)
		} else {
			m.devices[msg.MAC] = msg.Device
		}
		m.syncRows()
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		return m, tea.Quit

	case tickMsg:
		m.busy++
		return m, tea.Batch(m.refresh(), tick(m.interval))

	case actionDoneMsg:
		m.busy = max(m.busy-1, 0)
		switch {
		case msg.err == nil:
			m.status = fmt.Sprintf("%s %s: %s", SuccessMarker, msg.action, msg.target)
		case device.IsOffline(msg.err):
			m.status = fmt.Sprintf("%s %s: %s is offline", FailureMarker, msg.action, msg.target)
		default:
			m.status = fmt.Sprintf("%s %s: %v", FailureMarker, msg.action, msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.editing != "" {
			return m.updateEditing(msg)
		}
		return m.updateNormal(msg)
	}

	return m, nil
}

func (m WatchModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Refresh):
		m.busy++
		m.status = "Refreshing..."
		return m, m.refresh()

	case key.Matches(msg, m.Keys.Power):
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		on := !m.isOn(e.Base().MAC())
		m.busy++
		reg := m.reg
		return m, m.action("power", e.String(), func(ctx context.Context) error {
			var err error
			if l, ok := e.(*device.Light); ok {
				err = l.SetLightPower(ctx, on, 0, false)
			} else {
				err = e.Base().SetPower(ctx, on, false)
			}
			if err == nil {
				reg.Publish(registry.EventChanged, e)
			}
			return err
		})

	case key.Matches(msg, m.Keys.Label):
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.editing = e.Base().MAC()
		m.Input.SetValue(e.Base().CachedLabel())
		m.Input.CursorEnd()
		return m, m.Input.Focus()
	}

	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m WatchModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = ""
		m.Input.Blur()
		return m, nil

	case "enter":
		mac, label := m.editing, strings.TrimSpace(m.Input.Value())
		m.editing = ""
		m.Input.Blur()
		e, ok := m.reg.Get(mac)
		if !ok || label == "" {
			return m, nil
		}
		m.busy++
		reg := m.reg
		return m, m.action("rename", e.String(), func(ctx context.Context) error {
			if err := e.Base().SetLabel(ctx, label); err != nil {
				return err
			}
			reg.Publish(registry.EventChanged, e)
			return nil
		})
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// inView reports whether mac passes the registry view's filters. Events
// arrive for every device, filtered or not.
func (m WatchModel) inView(mac string) bool {
	if !m.reg.IsFiltered() {
		return true
	}
	e, ok := m.reg.Get(mac)
	return ok && m.reg.Matches(e)
}

func (m WatchModel) isOn(mac string) bool {
	s, ok := m.devices[mac]
	return ok && s.Power != nil && *s.Power
}

// View renders the model
func (m WatchModel) View() string {
	var b strings.Builder

	title := HeaderTitleStyle.Render(fmt.Sprintf("LIFX DEVICES  (%d)", len(m.order)))
	if m.busy > 0 {
		title += " " + m.Spinner.View()
	}
	b.WriteString(title)
	b.WriteString("\n\n")

	if len(m.order) == 0 {
		b.WriteString(StatusStyle.Render("Waiting for devices..."))
		b.WriteString("\n")
	} else {
		b.WriteString(lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Render(m.Table.View()))
		b.WriteString("\n")
	}

	if m.editing != "" {
		b.WriteString(ProgressLabelStyle.Render("Label for " + m.editing + ": "))
		b.WriteString(m.Input.View())
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(StatusStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.Help.View(m.Keys))
	return b.String()
}
