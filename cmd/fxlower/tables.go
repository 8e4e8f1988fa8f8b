// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

// rowStatus selects the style of a row of the summary.
type rowStatus int

const (
	rowOK rowStatus = iota
	rowCached
	rowFailed
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
	headerRowStyle = lipgloss.NewStyle().Reverse(true).Padding(0, 2).Align(lipgloss.Center)
	cellStyle      = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)

	statusStyles = map[rowStatus]lipgloss.Style{
		rowOK:     cellStyle,
		rowCached: cellStyle.Faint(true),
		rowFailed: cellStyle.Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}),
	}
)

// statusTable renders one row per graph, styled by its status.
type statusTable struct {
	Table    *lgtable.Table
	Statuses []rowStatus
}

// Row appends a row with the given status.
func (t *statusTable) Row(status rowStatus, cells ...string) {
	t.Statuses = append(t.Statuses, status)
	t.Table.Row(cells...)
}

// Failed returns the number of rows with failures.
func (t *statusTable) Failed() (count int) {
	for _, status := range t.Statuses {
		if status == rowFailed {
			count++
		}
	}
	return
}

// newStatusTable creates a table with the headers. Columns without a given alignment are aligned
// like the last one.
func newStatusTable(headers []string, alignments ...lipgloss.Position) *statusTable {
	t := &statusTable{}
	t.Table = lgtable.New().
		Headers(headers...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row < 0 {
				return headerRowStyle
			}
			s := statusStyles[t.Statuses[row]]
			switch {
			case col < len(alignments):
				s = s.Align(alignments[col])
			case len(alignments) > 0:
				s = s.Align(alignments[len(alignments)-1])
			}
			return s
		})
	return t
}
