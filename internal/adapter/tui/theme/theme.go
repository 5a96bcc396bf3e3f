// Package theme holds the terminal styles for the hearing viewer.
// Colors are adaptive so they read on light and dark terminals; NO_COLOR is
// honoured by lipgloss's profile detection.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"virtual-courtroom/internal/domain"
)

var (
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#e65100", Dark: "#ffa726"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}
	ColorBorder  = lipgloss.AdaptiveColor{Light: "#bdbdbd", Dark: "#616161"}
)

var (
	SymbolGavel   = "§"
	SymbolArrowR  = "→"
	SymbolSuccess = "✓"
	SymbolError   = "✗"
)

var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	TextSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	TextError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	TextMuted   = lipgloss.NewStyle().Foreground(ColorMuted)

	Header = lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder(), false, false, true, false).
		BorderForeground(ColorBorder)
)

// Speaker label styles, one per courtroom role.
var (
	ClientLabel   = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	OpposingLabel = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	CounselLabel  = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	JudgeLabel    = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	OtherLabel    = lipgloss.NewStyle().Foreground(ColorMuted).Bold(true)
)

// LabelFor returns the label style for a roster key.
func LabelFor(speaker string) lipgloss.Style {
	switch speaker {
	case domain.RosterClient:
		return ClientLabel
	case domain.RosterOpposingParty:
		return OpposingLabel
	case domain.RosterClientCounsel, domain.RosterOpposingCounsel:
		return CounselLabel
	case domain.RosterJudge:
		return JudgeLabel
	default:
		return OtherLabel
	}
}
