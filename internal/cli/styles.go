// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// styles are bound to the writer they render for, so output to files and
// pipes stays free of escape sequences.
type styles struct {
	r      *lipgloss.Renderer
	danger lipgloss.Style
	ok     lipgloss.Style
	header lipgloss.Style
	muted  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		r:      r,
		danger: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		ok:     r.NewStyle().Foreground(lipgloss.Color("42")),
		header: r.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Padding(0, 1),
		muted:  r.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1),
	}
}

// renderTable lays out rows under headers with a rounded border.
func (s styles) renderTable(headers []string, rows [][]string) string {
	cell := s.r.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.muted).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.header
			}
			return cell
		})
	return t.String()
}
