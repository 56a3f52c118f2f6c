package ui

import "github.com/charmbracelet/lipgloss"

// styles is the shared stylesheet for every view.
var styles = palette{
	title: fg("#7D56F4").Bold(true).MarginBottom(1),
	ok:    fg("#04B575").Bold(true),
	err:   fg("#FF0000").Bold(true),
	warn:  fg("#FFA500"),
	help:  fg("#626262").Italic(true),
}

type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}
