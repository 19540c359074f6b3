// Package render draws chat responses in a terminal: markdown through
// glamour, buttons, file trees and follow-ups through lipgloss.
package render

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// Color Palette
// =============================================================================

const (
	ColorPrimary   = "#7C3AED" // Violet - headings, prompts
	ColorSecondary = "#10B981" // Green - buttons, success
	ColorAccent    = "#60A5FA" // Blue - links, follow-ups
	ColorWarning   = "#F59E0B" // Amber - progress
	ColorError     = "#EF4444" // Red - errors
	ColorMuted     = "#6B7280" // Gray - hints
	ColorText      = "#E5E7EB" // Light gray - base text
)

var (
	Primary   = lipgloss.Color(ColorPrimary)
	Secondary = lipgloss.Color(ColorSecondary)
	Accent    = lipgloss.Color(ColorAccent)
	Warning   = lipgloss.Color(ColorWarning)
	Error     = lipgloss.Color(ColorError)
	Muted     = lipgloss.Color(ColorMuted)
	Text      = lipgloss.Color(ColorText)
)

// =============================================================================
// Styles
// =============================================================================

var (
	PromptStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	CommandStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	ProgressStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Italic(true)

	FollowupStyle = lipgloss.NewStyle().
			Foreground(Accent)

	TreeStyle = lipgloss.NewStyle().
			Foreground(Text)

	DirStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	HintStyle = lipgloss.NewStyle().
			Foreground(Muted)
)
