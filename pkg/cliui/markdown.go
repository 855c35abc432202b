package cliui

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

const markdownWidth = 80

// The style is detected from the terminal once per process.
var markdownRenderer = sync.OnceValues(func() (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWidth),
	)
})

// RenderMarkdown renders content for the terminal. On failure it returns
// content unchanged along with the error.
func RenderMarkdown(content string) (string, error) {
	r, err := markdownRenderer()
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return rendered, nil
}
