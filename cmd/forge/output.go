package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/forge/internal/domain/plugin"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"}
	colorError   = lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"}
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

var titleCaser = cases.Title(language.English)

// printHeading writes a section title, e.g. "sidebar panels" as "Sidebar Panels".
func printHeading(w io.Writer, title string) {
	_, _ = fmt.Fprintln(w, headingStyle.Render(titleCaser.String(title)))
}

func phaseLabel(p plugin.Phase) string {
	switch p {
	case plugin.PhaseLoaded:
		return successStyle.Render(string(p))
	case plugin.PhaseLoading:
		return warningStyle.Render(string(p))
	case plugin.PhaseFailed:
		return errorStyle.Render(string(p))
	default:
		return mutedStyle.Render(string(p))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// newTable returns a writer for tab separated columns. tabwriter counts ANSI
// escapes as width, so styled text only goes in the last cell of a row.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
