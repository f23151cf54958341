package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/mechdog/pkg/kinematics"
	"github.com/gwillem/mechdog/pkg/robot"
)

var (
	tableHeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableNameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle    = lipgloss.NewStyle().Padding(0, 1)
	tableChangedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
)

// jointTable renders one row per leg with the angles in degrees. Cells that
// differ from prev are highlighted.
func jointTable(t, prev kinematics.JointTable) string {
	headers := []string{"Leg"}
	for _, name := range robot.AllJoints() {
		headers = append(headers, string(name))
	}

	var rows [][]string
	for _, leg := range kinematics.Legs() {
		row := []string{leg.ID.String()}
		for _, v := range t[leg.Index()] {
			row = append(row, fmt.Sprintf("%.1f°", float64(v)/10))
		}
		rows = append(rows, row)
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return tableNameStyle
			case row >= 0 && row < len(t) && t[row][col-1] != prev[row][col-1]:
				return tableChangedStyle
			}
			return tableCellStyle
		}).
		Render()
}
