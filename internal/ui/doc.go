// Package ui renders lifxctl output in the terminal.
//
// Most commands run once and exit. They print a Header, do their work and
// finish with a Result box or a device table. A Printer bundles these for a
// single writer so commands stay short:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Power", "lifxctl power on", ui.Field{Key: "Targets", Value: "3"})
//	if err := reg.SetPower(ctx, true, false); err != nil {
//	    p.PrintError("Power change failed", err)
//	    return err
//	}
//	p.PrintSuccess("Power on")
//
// Discovery shows a ScanProgress bar while the engine listens, and bulk
// commands without a filter ask for Confirm first.
//
// # Watch
//
// WatchModel is the one interactive view. It is a Bubble Tea model fed by
// registry events, so changes made by other commands, the bridge or the
// bulbs themselves show up as they happen:
//
//	m := ui.NewWatchModel(ctx, reg, 10*time.Second)
//	defer m.Close()
//	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
//
// # Layout
//
// Widths are clamped between MinTerminalWidth and MaxContentWidth. When
// stdout is not a terminal the minimum width is used.
package ui
