package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/muurk/lifxlan/internal/device"
)

// Printer writes styled command output to a single writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a printer sized to the terminal.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, width: TerminalWidth()}
}

// Out returns the writer the printer writes to.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Width returns the render width.
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected terminal width.
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// PrintHeader prints a command banner.
func (p *Printer) PrintHeader(title, command string, params ...Field) {
	fmt.Fprintln(p.out, NewHeader(title, command, params...).SetWidth(p.width).Render())
	fmt.Fprintln(p.out)
}

// PrintSuccess prints a success box.
func (p *Printer) PrintSuccess(title string, details ...Field) {
	fmt.Fprintln(p.out, NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintWarning prints a warning box.
func (p *Printer) PrintWarning(title string, details ...Field) {
	fmt.Fprintln(p.out, NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints a failure box. Offline errors get the network tips.
func (p *Printer) PrintError(title string, err error) {
	var tips []string
	if device.IsOffline(err) {
		tips = OfflineTroubleshooting
	}
	fmt.Fprintln(p.out, NewFailureResult(title, err, tips).SetWidth(p.width).Render())
}

// PrintDevices prints a device table, or a note when there are none.
func (p *Printer) PrintDevices(snapshots []device.Snapshot) {
	if len(snapshots) == 0 {
		fmt.Fprintln(p.out, StatusStyle.Render(WarningMarker+" No devices found"))
		return
	}
	fmt.Fprintln(p.out, RenderDevices(snapshots, p.width))
}

// PrintSnapshot prints one device's cached state as a success box.
func (p *Printer) PrintSnapshot(s device.Snapshot) {
	details := []Field{
		{Key: "MAC", Value: s.MAC},
		{Key: "Address", Value: fmt.Sprintf("%s:%d", s.IP, s.Port)},
		{Key: "Power", Value: PowerText(s.Power)},
	}
	if s.Group != "" {
		details = append(details, Field{Key: "Group", Value: s.Group})
	}
	if s.Location != "" {
		details = append(details, Field{Key: "Location", Value: s.Location})
	}
	if s.Product != "" {
		details = append(details, Field{Key: "Product", Value: s.Product})
	}
	if s.HostFirmware != "" {
		details = append(details, Field{Key: "Firmware", Value: s.HostFirmware})
	}
	if s.Hex != "" {
		details = append(details, Field{Key: "Color", Value: s.Hex})
	}
	if s.Infrared != nil {
		details = append(details, Field{Key: "Infrared", Value: fmt.Sprintf("%d%%", *s.Infrared)})
	}
	if s.LastSeen != nil {
		details = append(details, Field{Key: "Last seen", Value: s.LastSeen.Format(time.RFC3339)})
	}

	title := s.Label
	if title == "" {
		title = s.MAC
	}
	p.PrintSuccess(title, details...)
}

// Println writes plain text.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}
