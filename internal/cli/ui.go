package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal palette. Severity colors line up with the scan report states:
// green for completed, orange for partial, red for failed.
var (
	colorAccent  = lipgloss.Color("68")  // steel blue, primary accent
	colorOK      = lipgloss.Color("42")  // green
	colorCaution = lipgloss.Color("214") // orange
	colorAlert   = lipgloss.Color("203") // red
	colorLink    = lipgloss.Color("81")  // light blue, commands
	colorBright  = lipgloss.Color("254") // near-white, values
	colorMuted   = lipgloss.Color("246") // gray, labels
	colorFaint   = lipgloss.Color("241") // dark gray, de-emphasized
)

// Styles shared with the other command files and the progress view.
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleDim       = lipgloss.NewStyle().Foreground(colorFaint)
	StyleValue     = lipgloss.NewStyle().Foreground(colorBright)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorAccent)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorOK)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorCaution)
)

const keyColumnWidth = 14

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorOK)
	styleIconError   = lipgloss.NewStyle().Foreground(colorAlert)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorCaution)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorMuted)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleCommand     = lipgloss.NewStyle().Foreground(colorLink)
	styleLabel       = lipgloss.NewStyle().Foreground(colorMuted).Width(keyColumnWidth)
)

const (
	iconSuccess = "✔"
	iconError   = "✖"
	iconWarning = "▲"
	iconInfo    = "•"
	iconArrow   = "↳"
)

// Status lines: icon plus message, one per line.

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, de-emphasized line under a status line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written-file path under a status line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value in a fixed-width key column.
func printKeyValue(key, value string) {
	fmt.Println(styleLabel.Render(key) + " " + StyleValue.Render(value))
}

// printStats prints the graph shape on one dim line.
func printStats(nodes, edges, roots int) {
	parts := []string{
		fmt.Sprintf("%d nodes", nodes),
		fmt.Sprintf("%d edges", edges),
	}
	if roots > 0 {
		parts = append(parts, fmt.Sprintf("%d roots", roots))
	}
	fmt.Println("  " + StyleDim.Render(strings.Join(parts, " · ")))
}

// printNextStep prints a suggested follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Println()
}
