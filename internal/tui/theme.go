package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/deskline/deskline/internal/tickets"
)

// Theme is the colour palette of the terminal UI, in ANSI 256-colour
// codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	BadgeOpen   lipgloss.Color
	BadgeClosed lipgloss.Color
	BadgeOther  lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	ErrorText        lipgloss.Color
}

// DefaultTheme suits a dark terminal.
var DefaultTheme = Theme{
	NormalText:         lipgloss.Color("252"),
	FaintText:          lipgloss.Color("243"),
	SelectedBackground: lipgloss.Color("237"),
	SelectedForeground: lipgloss.Color("255"),
	BadgeOpen:          lipgloss.Color("42"),
	BadgeClosed:        lipgloss.Color("245"),
	BadgeOther:         lipgloss.Color("214"),
	HeaderForeground:   lipgloss.Color("75"),
	BorderColor:        lipgloss.Color("240"),
	HelpText:           lipgloss.Color("241"),
	ErrorText:          lipgloss.Color("203"),
}

// BadgeColor returns the colour for a status badge.
func (theme Theme) BadgeColor(kind tickets.BadgeKind) lipgloss.Color {
	switch kind {
	case tickets.BadgeOpen:
		return theme.BadgeOpen
	case tickets.BadgeClosed:
		return theme.BadgeClosed
	}
	return theme.BadgeOther
}

func (theme Theme) badge(status string, width int) string {
	kind, label := tickets.Badge(status)
	return lipgloss.NewStyle().Foreground(theme.BadgeColor(kind)).Render(pad(label, width))
}
