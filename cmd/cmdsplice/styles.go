// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Adaptive colors pick the light or dark variant from the terminal background.
var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	colorError   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	colorCode    = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
)

var (
	// TitleStyle renders section headers.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	// SubtitleStyle renders paths and secondary text.
	SubtitleStyle = lipgloss.NewStyle().Foreground(colorMuted)
	// SuccessStyle renders the completion notice.
	SuccessStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	// ErrorStyle renders the "Error:" prefix.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	// WarningStyle renders plan warnings and issue kinds.
	WarningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	// CmdStyle renders command names and C symbols.
	CmdStyle = lipgloss.NewStyle().Foreground(colorCode)

	successIcon = lipgloss.NewStyle().Foreground(colorSuccess).Render("✓")
	errorIcon   = ErrorStyle.Render("✗")
	warningIcon = WarningStyle.Render("!")
	infoIcon    = SubtitleStyle.Render("•")
)
