package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/mechdog/pkg/robot"
)

type VariantsCommand struct {
	File string `long:"file" description:"Variant catalogue to list instead of the built-in one"`
}

func (c *VariantsCommand) Execute(args []string) error {
	variants := robot.BuiltinVariants()
	if c.File != "" {
		var err error
		if variants, err = robot.LoadVariants(c.File); err != nil {
			return err
		}
	}

	var rows [][]string
	for _, name := range robot.VariantNames(variants) {
		v := variants[name]
		g := v.Geometry
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%g / %g / %g", g.L1, g.L2, g.L3),
			fmt.Sprintf("%g x %g", 2*g.HalfLength, 2*g.HalfWidth),
			fmt.Sprintf("%g", v.Stance.Height),
			fmt.Sprintf("%g..%g", v.Limits.Height.Min, v.Limits.Height.Max),
			fmt.Sprintf("%g / %g", v.Gait.StepStatic, v.Gait.StepDynamic),
			fmt.Sprintf("%g", v.Gait.FootElevation),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Variant", "Links (mm)", "Body (mm)", "Height", "Height range", "Step crawl/trot", "Lift").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return tableNameStyle
			}
			return tableCellStyle
		})

	fmt.Println(t.Render())
	return nil
}
