// Package cliui holds the terminal presentation shared by chatgate commands:
// the color theme, step indicators and markdown rendering.
package cliui

import "charm.land/lipgloss/v2"

// 256-color palette indices.
const (
	colorGreen  = "82"
	colorRed    = "196"
	colorOrange = "214"
	colorBlue   = "39"
	colorGray   = "245"
	colorLight  = "252"
)

func fg(c string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}

var (
	StepStyle   = fg(colorGray)
	DimStyle    = fg(colorGray)
	ErrorStyle  = fg(colorRed)
	WarnStyle   = fg(colorOrange)
	NameStyle   = fg(colorBlue)
	KeyStyle    = fg(colorBlue).Bold(true)
	ValueStyle  = fg(colorLight)
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	SuccessMark = fg(colorGreen).Render("✓")
	FailMark    = fg(colorRed).Render("✗")

	// Chat REPL prompts.
	UserPrompt      = fg(colorGreen).Bold(true).Render("you> ")
	AssistantPrompt = fg(colorGray).Render("assistant> ")

	spinnerStyle = fg(colorGreen)
)

// Mark returns SuccessMark for a nil error and FailMark otherwise.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}
