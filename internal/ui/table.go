package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muurk/lifxlan/internal/device"
)

// deviceColumns are the columns shared by the device table and watch view.
var deviceColumns = []string{"MAC", "Label", "Group", "Power", "Color", "IP"}

// PowerText renders a cached power state.
func PowerText(power *bool) string {
	switch {
	case power == nil:
		return "?"
	case *power:
		return "on"
	default:
		return "off"
	}
}

// deviceRow returns the cells for one snapshot, in deviceColumns order.
func deviceRow(s device.Snapshot) []string {
	hex := s.Hex
	if hex == "" {
		hex = "-"
	}
	return []string{
		s.MAC,
		s.Label,
		s.Group,
		PowerText(s.Power),
		hex,
		fmt.Sprintf("%s:%d", s.IP, s.Port),
	}
}

// RenderDevices renders snapshots as a bordered table no wider than width.
func RenderDevices(snapshots []device.Snapshot, width int) string {
	rows := make([][]string, len(snapshots))
	for i, s := range snapshots {
		rows[i] = deviceRow(s)
	}

	const powerColumn = 3

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Width(clampWidth(width)).
		Headers(deviceColumns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			if col == powerColumn && row >= 0 && row < len(rows) {
				switch rows[row][powerColumn] {
				case "on":
					return TableCellStyle.Foreground(SuccessColor)
				case "off":
					return TableCellStyle.Foreground(MutedColor)
				}
			}
			return TableCellStyle
		}).
		Render()
}
