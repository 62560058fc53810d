package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/pkgcheck/pkg/graph"
)

// stdout receives all human-readable command output.
var stdout io.Writer = os.Stdout

// =============================================================================
// Palette and Styles
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorCyan)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// Audit sources shown after the statistics line.
const (
	iconSnapshot = "snapshot"
	iconFresh    = "fresh"
)

// =============================================================================
// Status Lines
// =============================================================================

type statusIcon struct {
	glyph string
	style lipgloss.Style
}

var (
	statusOK   = statusIcon{"✓", lipgloss.NewStyle().Foreground(colorGreen)}
	statusFail = statusIcon{"✗", lipgloss.NewStyle().Foreground(colorRed)}
	statusWarn = statusIcon{"!", lipgloss.NewStyle().Foreground(colorYellow)}
	statusInfo = statusIcon{"›", lipgloss.NewStyle().Foreground(colorGray)}
)

func printStatus(icon statusIcon, msg string) {
	fmt.Fprintln(stdout, icon.style.Render(icon.glyph)+" "+msg)
}

func printSuccess(format string, args ...any) {
	printStatus(statusOK, fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	printStatus(statusFail, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	printStatus(statusWarn, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	printStatus(statusInfo, fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line below a status line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile reports a written output file.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep suggests the command to run next.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Fprintln(stdout)
}

// printStats prints the graph size on one line, e.g.
//
//	4211 packages · 2950 components · 812 obsolete · snapshot
func printStats(stats graph.Stats, source string) {
	parts := []string{fmt.Sprintf("%d packages", stats.Packages)}
	for _, n := range []struct {
		count int
		label string
	}{
		{stats.Components, "components"},
		{stats.Obsolete, "obsolete"},
		{stats.Renamed, "renamed"},
	} {
		if n.count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n.count, n.label))
		}
	}
	for i, p := range parts {
		parts[i] = StyleDim.Render(p)
	}

	src := StyleDim.Render(source)
	if source == iconSnapshot {
		src = StyleSuccess.Render(source)
	}
	parts = append(parts, src)
	fmt.Fprintln(stdout, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}
