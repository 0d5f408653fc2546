// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles defines the shared terminal styling for the chat UI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme bundles the lipgloss styles for one color scheme.
type Theme struct {
	// AppFrame wraps the whole window.
	AppFrame lipgloss.Style

	// Chat transcript.
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	MessageBody    lipgloss.Style
	Timestamp      lipgloss.Style
	StreamCursor   lipgloss.Style

	// Sidebar session list.
	SidebarTitle    lipgloss.Style
	SessionItem     lipgloss.Style
	SessionSelected lipgloss.Style

	// Chrome.
	StatusBar lipgloss.Style
	ErrorText lipgloss.Style
	HelpText  lipgloss.Style
	InputBox  lipgloss.Style
	Spinner   lipgloss.Style
}

// Dark is the default theme.
func Dark() Theme {
	return Theme{
		AppFrame: lipgloss.NewStyle().Padding(0, 1),

		UserLabel:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		AssistantLabel: lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true),
		SystemLabel:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Bold(true),
		MessageBody:    lipgloss.NewStyle(),
		Timestamp:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StreamCursor:   lipgloss.NewStyle().Foreground(lipgloss.Color("213")),

		SidebarTitle:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).Underline(true),
		SessionItem:     lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		SessionSelected: lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")),

		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color("236")),
		ErrorText: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		HelpText:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		InputBox:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")),
		Spinner:   lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
	}
}

// Light is the theme for light terminal backgrounds.
func Light() Theme {
	return Theme{
		AppFrame: lipgloss.NewStyle().Padding(0, 1),

		UserLabel:      lipgloss.NewStyle().Foreground(lipgloss.Color("25")).Bold(true),
		AssistantLabel: lipgloss.NewStyle().Foreground(lipgloss.Color("90")).Bold(true),
		SystemLabel:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Bold(true),
		MessageBody:    lipgloss.NewStyle(),
		Timestamp:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		StreamCursor:   lipgloss.NewStyle().Foreground(lipgloss.Color("90")),

		SidebarTitle:    lipgloss.NewStyle().Foreground(lipgloss.Color("25")).Bold(true).Underline(true),
		SessionItem:     lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		SessionSelected: lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("25")),

		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Background(lipgloss.Color("253")),
		ErrorText: lipgloss.NewStyle().Foreground(lipgloss.Color("124")).Bold(true),
		HelpText:  lipgloss.NewStyle().Foreground(lipgloss.Color("246")),
		InputBox:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("25")),
		Spinner:   lipgloss.NewStyle().Foreground(lipgloss.Color("90")),
	}
}

// ByName returns the theme for a config theme name. An empty name
// picks by the terminal's background.
func ByName(name string) Theme {
	switch name {
	case "light":
		return Light()
	case "dark":
		return Dark()
	}
	if HasDarkBackground() {
		return Dark()
	}
	return Light()
}

// GlamourStyle maps a theme name to the glamour style name used for
// markdown rendering. An empty name follows the terminal background,
// matching ByName.
func GlamourStyle(name string) string {
	switch name {
	case "light":
		return "light"
	case "dark":
		return "dark"
	}
	if HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// HasDarkBackground reports the terminal's background.
func HasDarkBackground() bool {
	return termenv.HasDarkBackground()
}
