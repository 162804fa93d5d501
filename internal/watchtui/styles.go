package watchtui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha palette.
var (
	colorBase     = lipgloss.Color("#1e1e2e")
	colorSurface0 = lipgloss.Color("#313244")
	colorSurface2 = lipgloss.Color("#585b70")
	colorOverlay0 = lipgloss.Color("#6c7086")
	colorText     = lipgloss.Color("#cdd6f4")
	colorSubtext0 = lipgloss.Color("#a6adc8")

	colorRed      = lipgloss.Color("#f38ba8")
	colorGreen    = lipgloss.Color("#a6e3a1")
	colorYellow   = lipgloss.Color("#f9e2af")
	colorBlue     = lipgloss.Color("#89b4fa")
	colorMauve    = lipgloss.Color("#cba6f7")
	colorLavender = lipgloss.Color("#b4befe")
)

// Header and status bar.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBase).
			Background(colorBlue).
			Padding(0, 2)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorSubtext0).
			Background(colorSurface0).
			Padding(0, 1)

	statusKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLavender).
			Background(colorSurface0)
)

// Timeline entries.
var (
	runningStyle = lipgloss.NewStyle().Foreground(colorYellow)
	doneStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	failedStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	dimStyle     = lipgloss.NewStyle().Foreground(colorOverlay0)
	titleStyle   = lipgloss.NewStyle().Foreground(colorText)
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorMauve)
)

// Pending plan box.
var (
	planBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface2).
			Padding(0, 1)

	planTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLavender)

	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
)
