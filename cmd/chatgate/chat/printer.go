package chatcmder

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/chatgate/pkg/cliui"
	"github.com/papercomputeco/chatgate/pkg/conversation"
	"github.com/papercomputeco/chatgate/pkg/llm"
)

// printer writes the assistant reply as it grows. It is driven from the
// controller observer and only ever appends, so output stays consistent
// with the replace-semantics content carried by each chunk.
type printer struct {
	w        io.Writer
	markdown bool

	session   string
	printed   string
	cancelled atomic.Bool
}

func newPrinter(w io.Writer, markdown bool) *printer {
	return &printer{w: w, markdown: markdown}
}

// observe receives every controller state.
func (p *printer) observe(s conversation.State) {
	switch s.Status {
	case conversation.Sending:
		p.session = s.SessionID
		p.printed = ""
		p.cancelled.Store(false)
		fmt.Fprint(p.w, cliui.AssistantPrompt)

	case conversation.Streaming:
		if p.markdown {
			return
		}
		p.write(reply(s))

	case conversation.Idle, conversation.Failed:
		if p.session == "" {
			return
		}
		p.session = ""

		if p.cancelled.Swap(false) {
			fmt.Fprintf(p.w, "\n  %s\n", cliui.DimStyle.Render("(cancelled)"))
			return
		}

		if p.markdown {
			p.renderMarkdown(reply(s))
		} else {
			p.write(reply(s))
			fmt.Fprintln(p.w)
		}
		if s.Status == conversation.Failed && s.Err != nil {
			fmt.Fprintf(p.w, "  %s %s\n", cliui.FailMark, cliui.ErrorStyle.Render(s.Err.Error()))
		}
	}
}

// markCancelled makes the next idle state print as a cancelled turn.
func (p *printer) markCancelled() {
	p.cancelled.Store(true)
}

// write prints whatever part of content was not yet printed. Model output is
// stripped of terminal escape sequences.
func (p *printer) write(content string) {
	content = ansi.Strip(content)
	if content == p.printed {
		return
	}

	if strings.HasPrefix(content, p.printed) {
		fmt.Fprint(p.w, content[len(p.printed):])
	} else {
		fmt.Fprint(p.w, "\n"+content)
	}
	p.printed = content
}

func (p *printer) renderMarkdown(content string) {
	if content == "" {
		fmt.Fprintln(p.w)
		return
	}
	rendered, err := cliui.RenderMarkdown(ansi.Strip(content))
	if err != nil {
		rendered = content + "\n"
	}
	fmt.Fprint(p.w, "\n"+rendered)
	p.printed = content
}

// reply returns the assistant content of the current turn, if any.
func reply(s conversation.State) string {
	if len(s.Messages) == 0 {
		return ""
	}
	last := s.Messages[len(s.Messages)-1]
	if last.Role != llm.RoleAssistant {
		return ""
	}
	return last.Content
}
