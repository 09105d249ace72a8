package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ScanProgress shows how far a timed discovery has run and what it found.
type ScanProgress struct {
	Label   string        // e.g., "Discovering bulbs..."
	Total   time.Duration // how long the scan runs
	Elapsed time.Duration
	Found   []string // labels or MACs, in discovery order
	Width   int
	bar     progress.Model
}

// NewScanProgress creates a progress display for a scan lasting total.
func NewScanProgress(label string, total time.Duration) *ScanProgress {
	p := &ScanProgress{
		Label: label,
		Total: total,
	}
	return p.SetWidth(TerminalWidth())
}

// SetWidth sets the terminal width for responsive rendering
func (p *ScanProgress) SetWidth(width int) *ScanProgress {
	p.Width = width
	barWidth := min(max(width-30, 20), 50)
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// Advance records the elapsed time, capped at Total.
func (p *ScanProgress) Advance(elapsed time.Duration) {
	p.Elapsed = min(elapsed, p.Total)
}

// AddFound appends a discovered device name.
func (p *ScanProgress) AddFound(name string) {
	p.Found = append(p.Found, name)
}

// Percent returns the fraction of the scan that has elapsed.
func (p *ScanProgress) Percent() float64 {
	if p.Total <= 0 {
		return 1
	}
	return float64(p.Elapsed) / float64(p.Total)
}

// Render returns the styled progress display as a string
func (p *ScanProgress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	timing := fmt.Sprintf("[%s/%s]", p.Elapsed.Round(100*time.Millisecond), p.Total)
	count := fmt.Sprintf("%d found", len(p.Found))
	b.WriteString(lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %s  %s", p.bar.ViewAs(p.Percent()), timing, count)))
	b.WriteString("\n")

	for _, name := range p.Found {
		b.WriteString("\n")
		b.WriteString(StatusStyle.Render(SuccessMarker + " " + name))
	}

	return b.String()
}

// String implements fmt.Stringer
func (p *ScanProgress) String() string {
	return p.Render()
}
