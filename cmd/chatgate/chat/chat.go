// Package chatcmder provides the chat command for interactive chat through a
// running chatgate gateway.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatgate/pkg/cliui"
	"github.com/papercomputeco/chatgate/pkg/config"
	"github.com/papercomputeco/chatgate/pkg/conversation"
	"github.com/papercomputeco/chatgate/pkg/credentials"
	"github.com/papercomputeco/chatgate/pkg/dotdir"
	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/logger"
	"github.com/papercomputeco/chatgate/pkg/streamclient"
)

type chatCommander struct {
	configDir string
	debug     bool
	resume    bool
	markdown  bool
	cfg       *config.Config

	target   string
	model    string
	provider string

	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

var chatFlags = []string{
	config.FlagTarget,
	config.FlagModel,
	config.FlagClientProvider,
}

const chatLongDesc string = `Start an interactive chat session through a running chatgate gateway.

Replies stream in as they are generated. Press Ctrl+C to cancel a reply that
is still streaming, and Ctrl+C again (or /exit) to quit.

The visible history is saved to transcript.json in the .chatgate/ directory
when the session ends. Use --resume to continue from it.

Commands:
  /exit, /quit   End the session
  /reset         Forget the history and the saved transcript

Examples:
  chatgate chat
  chatgate chat --model claude-sonnet-4-20250514
  chatgate chat --provider ollama --model llama3.2 --resume
  chatgate chat --target http://gateway.internal:8080 --markdown`

const chatShortDesc string = "Interactive chat through the chatgate gateway"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{in: os.Stdin, out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)

			cmder.cfg, err = config.Resolve(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagClientProvider, &cmder.provider)
	cmd.Flags().BoolVarP(&cmder.resume, "resume", "r", false, "Continue from the saved transcript")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render each finished reply as markdown")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	store, err := credentials.NewStore(mgr, c.logger)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	ddm := dotdir.NewManager()
	transcript := &dotdir.Transcript{}
	if c.resume {
		saved, err := ddm.LoadTranscript(c.configDir)
		if err != nil {
			return err
		}
		if saved != nil {
			transcript = saved
		}
	}

	model := c.cfg.Client.Model
	providerID := c.cfg.Client.Provider
	if model == "" {
		model = transcript.Model
	}
	if providerID == "" {
		providerID = transcript.Provider
	}

	client := streamclient.New(streamclient.Config{
		BaseURL: c.cfg.Client.Target,
		Token:   store.Token,
		Logger:  c.logger,
	})

	p := newPrinter(c.out, c.markdown)
	newController := func(history []llm.Message) *conversation.Controller {
		return conversation.NewController(client,
			conversation.WithHistory(history),
			conversation.WithTarget(model, providerID),
			conversation.WithObserver(p.observe),
			conversation.WithControllerLogger(c.logger),
			conversation.WithSignOut(func() {
				if err := store.SignOut(); err != nil {
					c.logger.Warn("signing out", "error", err)
				}
			}),
		)
	}
	ctrl := newController(transcript.Messages)

	interactive := cliui.IsTerminal(c.in)
	c.banner(len(transcript.Messages), model, providerID)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	lines := make(chan string)
	go c.readLines(lines)

	for {
		if interactive {
			fmt.Fprint(c.out, cliui.UserPrompt)
		}

		var line string
		select {
		case <-ctx.Done():
			return c.finish(ddm, ctrl, model, providerID)
		case <-sigs:
			fmt.Fprintln(c.out)
			return c.finish(ddm, ctrl, model, providerID)
		case l, ok := <-lines:
			if !ok {
				return c.finish(ddm, ctrl, model, providerID)
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return c.finish(ddm, ctrl, model, providerID)
		case "/reset":
			if err := ddm.ClearTranscript(c.configDir); err != nil {
				return err
			}
			ctrl = newController(nil)
			fmt.Fprintf(c.out, "  %s %s\n", cliui.SuccessMark, cliui.DimStyle.Render("history cleared"))
			continue
		}

		if err := ctrl.Send(ctx, line); err != nil {
			fmt.Fprintf(c.out, "  %s %s\n", cliui.FailMark, cliui.ErrorStyle.Render(err.Error()))
			continue
		}
		c.await(ctrl, p, sigs)
	}
}

// await blocks until the current turn ends. An interrupt while streaming
// cancels the turn instead of quitting.
func (c *chatCommander) await(ctrl *conversation.Controller, p *printer, sigs <-chan os.Signal) {
	done := make(chan struct{})
	go func() {
		ctrl.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			return
		case <-sigs:
			if ctrl.State().Busy() {
				p.markCancelled()
				ctrl.Cancel()
			}
		}
	}
}

func (c *chatCommander) readLines(out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}

func (c *chatCommander) banner(resumed int, model, providerID string) {
	target := c.cfg.Client.Target
	fmt.Fprintln(c.out)
	if resumed > 0 {
		fmt.Fprintf(c.out, "  %s Resuming %d messages\n", cliui.SuccessMark, resumed)
	}
	fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Gateway:"), cliui.DimStyle.Render(target))
	if model != "" || providerID != "" {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Target:"),
			cliui.DimStyle.Render(strings.Trim(providerID+"/"+model, "/")))
	}
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Ctrl+C cancels a reply, /exit quits"))
}

// finish cancels any open turn and saves the transcript.
func (c *chatCommander) finish(ddm *dotdir.Manager, ctrl *conversation.Controller, model, providerID string) error {
	ctrl.Cancel()
	ctrl.Wait()

	state := ctrl.State()
	if len(state.Messages) == 0 {
		return nil
	}

	return ddm.SaveTranscript(&dotdir.Transcript{
		Provider: providerID,
		Model:    model,
		Messages: state.Messages,
	}, c.configDir)
}
