package main

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	header := titleStyle.Render(" fieldlens ─ document region navigator ")

	sidebar := lipgloss.NewStyle().Width(sidebarWidth).Render(m.l.View())
	page := pageStyle.Render(m.renderPage())
	content := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, page)

	var footer string
	if m.entering {
		footer = "coordinates: " + m.input.View()
	} else {
		footer = statusStyle.Render(m.status)
	}
	if e := m.errs.get(); e != "" {
		footer = errorStyle.Render(e) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, content, m.stateLine(), footer)
}

func (m model) stateLine() string {
	s := m.pipeline.State()
	if !s.Loaded() {
		return statusStyle.Render("no document loaded")
	}
	line := fmt.Sprintf("page %d/%d · zoom %s (%.2f)", s.Page, s.PageCount, s.Mode, s.Scale)
	if s.Rendering {
		line += " · rendering…"
	}
	return statusStyle.Render(line + " · " + s.URL)
}

// renderPage composites the overlay over the base surface, one character
// cell per device pixel.
func (m model) renderPage() string {
	w, h := m.base.Size()
	styles := make(map[color.NRGBA]lipgloss.Style)
	cellStyle := func(c color.NRGBA) lipgloss.Style {
		st, ok := styles[c]
		if !ok {
			hexCol := fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
			st = lipgloss.NewStyle().Background(lipgloss.Color(hexCol))
			styles[c] = st
		}
		return st
	}

	var b strings.Builder
	for y := 0; y < h; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < w; x++ {
			c, ok := m.overlay.At(x, y)
			if !ok {
				c, ok = m.base.At(x, y)
			}
			if !ok {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(cellStyle(c).Render(" "))
		}
	}
	return b.String()
}
