package tui

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	colorAccent    = lipgloss.Color("#E07A5F")
	colorWhite     = lipgloss.Color("#FFFFFF")
	colorDim       = lipgloss.Color("#6B7280")
	colorSuccess   = lipgloss.Color("#10B981")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorError     = lipgloss.Color("#EF4444")
	colorInfo      = lipgloss.Color("#60A5FA")
	colorSeparator = lipgloss.Color("#4B5563")
)

// Styles
var (
	// Header title style
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	// Subtitle style
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	// Selected row style
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	// Unselected row style
	ItemStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	// Dimmed text style (details, empty states)
	DimmedStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	// Help text style
	HelpStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	// Error style
	ErrorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	// Degraded banner style
	BannerStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(colorError).
			Bold(true).
			Padding(0, 1)

	// Spinner style
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	// Separator style
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(colorSeparator)

	// Key highlight style (for keybinding display)
	KeyStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	// Column header style
	ColumnHeaderStyle = lipgloss.NewStyle().
				Foreground(colorDim).
				Bold(true)
)

// Status text styles
var (
	StatusRunning       = lipgloss.NewStyle().Foreground(colorSuccess)
	StatusStopped       = lipgloss.NewStyle().Foreground(colorWarning)
	StatusSuspended     = lipgloss.NewStyle().Foreground(colorInfo)
	StatusTransitioning = lipgloss.NewStyle().Foreground(colorAccent)
	StatusUnknown       = lipgloss.NewStyle().Foreground(colorDim)
)

// Cursor returns the selection cursor
func Cursor() string {
	return lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true).
		Render("› ")
}

// NoCursor returns spacing for non-selected rows
func NoCursor() string {
	return "  "
}

// RenderSeparator returns a horizontal separator line
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 72
	}
	line := ""
	for i := 0; i < width; i++ {
		line += "─"
	}
	return SeparatorStyle.Render(line)
}

// RenderKeyBinding formats a key binding with highlighted key
func RenderKeyBinding(key, description string) string {
	return KeyStyle.Render(key) + " " + DimmedStyle.Render(description)
}
