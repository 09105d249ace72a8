package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muurk/lifxlan/internal/registry"
)

// scanRefresh is how often the scan bar is redrawn.
const scanRefresh = 100 * time.Millisecond

type scanTickMsg time.Time

// ScanModel animates a ScanProgress while discovery runs and quits when
// the scan time is up. Registered devices are listed as they arrive.
type ScanModel struct {
	Progress  *ScanProgress
	start     time.Time
	events    <-chan registry.Event
	Cancelled bool
}

// NewScanModel creates a scan view fed by events, typically a registry
// subscription.
func NewScanModel(label string, total time.Duration, events <-chan registry.Event) ScanModel {
	return ScanModel{
		Progress: NewScanProgress(label, total),
		start:    time.Now(),
		events:   events,
	}
}

func scanTick() tea.Cmd {
	return tea.Tick(scanRefresh, func(t time.Time) tea.Msg { return scanTickMsg(t) })
}

// Init starts the redraw ticker and the event pump.
func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(scanTick(), waitForEvent(m.events))
}

// Update handles messages and updates the model
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Progress.SetWidth(clampWidth(msg.Width))

	case scanTickMsg:
		m.Progress.Advance(time.Since(m.start))
		if m.Progress.Elapsed >= m.Progress.Total {
			return m, tea.Quit
		}
		return m, scanTick()

	case eventMsg:
		if msg.Kind == registry.EventRegistered {
			name := msg.Device.Label
			if name == "" {
				name = msg.MAC
			}
			m.Progress.AddFound(name + "  " + msg.MAC)
		}
		return m, waitForEvent(m.events)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.Cancelled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the model
func (m ScanModel) View() string {
	return m.Progress.Render() + "\n"
}
