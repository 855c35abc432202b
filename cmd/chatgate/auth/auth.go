// Package authcmder provides the auth command for storing API credentials
// and the gateway session token.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/chatgate/pkg/cliui"
	"github.com/papercomputeco/chatgate/pkg/credentials"
)

const authLongDesc string = `Store API credentials for LLM providers.

Credentials are stored in credentials.toml in the .chatgate/ directory. A
running gateway reloads them when the file changes, so keys can be rotated
without a restart. Keys set this way take precedence over the provider
environment variables.

The session token is the bearer token "chatgate chat" and "chatgate models"
present to a gateway started with an auth token. It is cleared automatically
when the gateway rejects it.

Supported providers: anthropic, azure, openai

Examples:
  chatgate auth openai              Prompt for OpenAI API key
  chatgate auth anthropic           Prompt for Anthropic API key
  chatgate auth --token             Prompt for the gateway session token
  chatgate auth --sign-out          Discard the session token
  chatgate auth --list              List stored credentials
  chatgate auth --remove openai     Remove stored OpenAI credentials
  echo $KEY | chatgate auth openai  Pipe API key from stdin`

const authShortDesc string = "Store API credentials for LLM providers"

type authCommander struct {
	listFlag    bool
	removeFlag  string
	tokenFlag   bool
	signOutFlag bool

	in  io.Reader
	out io.Writer
}

func NewAuthCmd() *cobra.Command {
	cmder := &authCommander{}

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()

			if len(args) == 0 && !cmder.listFlag && cmder.removeFlag == "" && !cmder.tokenFlag && !cmder.signOutFlag {
				return fmt.Errorf("provider argument required\n\nSupported providers: %s",
					strings.Join(credentials.SupportedProviders(), ", "))
			}

			mgr, err := credentials.NewManager(configDir)
			if err != nil {
				return fmt.Errorf("loading credentials: %w", err)
			}

			switch {
			case cmder.listFlag:
				return cmder.runList(mgr)
			case cmder.removeFlag != "":
				return cmder.runRemove(mgr, cmder.removeFlag)
			case cmder.signOutFlag:
				return cmder.runSignOut(mgr)
			case cmder.tokenFlag:
				return cmder.runToken(mgr)
			default:
				return cmder.runAuth(mgr, args[0])
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&cmder.listFlag, "list", false, "List stored credentials")
	cmd.Flags().StringVar(&cmder.removeFlag, "remove", "", "Remove stored credentials for a provider")
	cmd.Flags().BoolVar(&cmder.tokenFlag, "token", false, "Store the gateway session token")
	cmd.Flags().BoolVar(&cmder.signOutFlag, "sign-out", false, "Discard the stored session token")

	return cmd
}

func (c *authCommander) runAuth(mgr *credentials.Manager, provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	envVar := credentials.EnvVarForProvider(provider)
	apiKey, err := c.readSecret(fmt.Sprintf("Enter API key for %s (%s): ", provider, envVar))
	if err != nil {
		return err
	}
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Stored %s credentials %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("(overrides "+envVar+")"),
	)
	return nil
}

func (c *authCommander) runToken(mgr *credentials.Manager) error {
	token, err := c.readSecret("Enter gateway session token: ")
	if err != nil {
		return err
	}
	if token == "" {
		return errors.New("session token cannot be empty")
	}

	if err := mgr.SetToken(token); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Stored session token\n\n", cliui.SuccessMark)
	return nil
}

func (c *authCommander) runSignOut(mgr *credentials.Manager) error {
	if err := mgr.ClearToken(); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Signed out\n\n", cliui.SuccessMark)
	return nil
}

func (c *authCommander) runList(mgr *credentials.Manager) error {
	providers, err := mgr.ListProviders()
	if err != nil {
		return err
	}

	creds, err := mgr.Load()
	if err != nil {
		return err
	}

	if len(providers) == 0 && creds.Session.Token == "" {
		fmt.Fprintf(c.out, "\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(c.out, "  Use 'chatgate auth <provider>' to store credentials.\n")
		fmt.Fprintf(c.out, "  Supported providers: %s\n\n", strings.Join(credentials.SupportedProviders(), ", "))
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored credentials"))
	for _, p := range providers {
		if envVar := credentials.EnvVarForProvider(p); envVar != "" {
			fmt.Fprintf(c.out, "  %s  %s  %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(p),
				cliui.DimStyle.Render("→ "+envVar),
			)
		} else {
			fmt.Fprintf(c.out, "  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(p))
		}
	}
	if creds.Session.Token != "" {
		fmt.Fprintf(c.out, "  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render("session token"))
	}
	fmt.Fprintln(c.out)

	return nil
}

func (c *authCommander) runRemove(mgr *credentials.Manager, provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))
	return nil
}

// readSecret reads one line from the command input. A terminal gets a
// prompt and hidden input; anything else is read as piped text.
func (c *authCommander) readSecret(prompt string) (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.out, prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	scanner := bufio.NewScanner(c.in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
