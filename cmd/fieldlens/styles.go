package main

import "github.com/charmbracelet/lipgloss"

// Styles
var (
	accentFg  = lipgloss.Color("#F97316")
	dimFg     = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
	borderCol = lipgloss.Color("#243141")

	titleStyle  = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(dimFg)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	pageStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderCol)
)
