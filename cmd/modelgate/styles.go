package main

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan
	cellStyle   = lipgloss.NewStyle().PaddingRight(1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray

	// Status styles.
	onlineStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")) // green
	offlineStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")) // red
	unknownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))            // yellow

	errorBlockStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("1"))
)
