package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette. 256-color codes so the output looks the same on most terminals.
var (
	colorAccent = lipgloss.Color("36")
	colorOK     = lipgloss.Color("35")
	colorWarn   = lipgloss.Color("220")
	colorFail   = lipgloss.Color("167")
	colorLink   = lipgloss.Color("75")
	colorText   = lipgloss.Color("255")
	colorLabel  = lipgloss.Color("245")
	colorMuted  = lipgloss.Color("240")
)

// Styles shared by commands and the preview TUI.
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleNumber    = StyleHighlight
	StyleLink      = lipgloss.NewStyle().Foreground(colorLink).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorMuted)
	StyleValue     = lipgloss.NewStyle().Foreground(colorText)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorWarn)

	styleSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleLabel   = lipgloss.NewStyle().Foreground(colorLabel).Width(12)
	styleCommand = lipgloss.NewStyle().Foreground(colorLink)
)

// status marks the start of a printer line.
type status struct {
	glyph string
	style lipgloss.Style
}

var (
	statusOK   = status{"✓", lipgloss.NewStyle().Foreground(colorOK)}
	statusFail = status{"✗", lipgloss.NewStyle().Foreground(colorFail)}
	statusWarn = status{"!", lipgloss.NewStyle().Foreground(colorWarn)}
	statusInfo = status{"›", lipgloss.NewStyle().Foreground(colorLabel)}
)

const (
	iconCached = "cached"
	iconFresh  = "fresh"

	statsSep = " · "
)

// printer writes human-oriented command output. Log records go through
// the logger instead; printer output is what a command produces.
type printer struct {
	w io.Writer
}

// ui returns a printer bound to the CLI's output.
func (c *CLI) ui() printer { return printer{w: c.out} }

func (p printer) line(st status, msg string) {
	fmt.Fprintln(p.w, st.style.Render(st.glyph)+" "+msg)
}

func (p printer) success(format string, args ...any) {
	p.line(statusOK, fmt.Sprintf(format, args...))
}

func (p printer) failure(format string, args ...any) {
	p.line(statusFail, fmt.Sprintf(format, args...))
}

func (p printer) warning(format string, args ...any) {
	p.line(statusWarn, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (p printer) info(format string, args ...any) {
	p.line(statusInfo, fmt.Sprintf(format, args...))
}

// detail prints an indented secondary line.
func (p printer) detail(format string, args ...any) {
	fmt.Fprintln(p.w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// file prints a path a command wrote.
func (p printer) file(path string) {
	fmt.Fprintln(p.w, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func (p printer) keyValue(key, value string) {
	fmt.Fprintln(p.w, styleLabel.Render(key)+" "+StyleValue.Render(value))
}

func (p printer) stats(items, cols int, cached bool) {
	fmt.Fprintln(p.w, statsLine(items, cols, cached))
}

// nextStep suggests a follow-up command after a blank line.
func (p printer) nextStep(description, cmd string) {
	fmt.Fprintln(p.w, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func (p printer) newline() { fmt.Fprintln(p.w) }

// statsLine renders "N items · M columns · cached|fresh".
func statsLine(items, cols int, cached bool) string {
	parts := []string{pluralize(items, "item")}
	if cols > 0 {
		parts = append(parts, pluralize(cols, "column"))
	}
	for i, s := range parts {
		parts[i] = StyleDim.Render(s)
	}

	state := statusInfo.style.Render(iconFresh)
	if cached {
		state = statusOK.style.Render(iconCached)
	}
	parts = append(parts, state)
	return "  " + strings.Join(parts, StyleDim.Render(statsSep))
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
