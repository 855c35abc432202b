// Package initcmder provides the init command for initializing a local
// .chatgate directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatgate/pkg/cliui"
	"github.com/papercomputeco/chatgate/pkg/config"
	"github.com/papercomputeco/chatgate/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .chatgate/ directory in the current working directory.

Creates a local .chatgate/ directory that takes precedence over the default
~/.chatgate/ directory for configuration, credentials, and chat transcripts.

With --preset, a config.toml is written that routes the gateway and the chat
client to the named provider by default. An existing config.toml is never
overwritten.

Examples:
  chatgate init
  chatgate init --preset anthropic
  chatgate init --preset ollama`

const initShortDesc string = "Initialize a local .chatgate/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset for config.toml (anthropic, openai, azure, ollama)")
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *initCommander) run(out io.Writer) error {
	// Validate before touching the filesystem.
	var preset *config.Config
	if c.preset != "" {
		cfg, err := config.PresetConfig(c.preset)
		if err != nil {
			return err
		}
		preset = cfg
	}

	dir, created, err := dotdir.NewManager().InitLocal()
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "%s Initialized .chatgate directory: %s\n", cliui.SuccessMark, dir)
	} else {
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
	}

	if preset == nil {
		return nil
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfger.GetTarget()); err == nil {
		fmt.Fprintf(out, "%s config.toml exists, leaving it unchanged\n", cliui.WarnStyle.Render("!"))
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	if err := cfger.SaveConfig(preset); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Wrote %s preset: %s\n", cliui.SuccessMark,
		cliui.NameStyle.Render(preset.Gateway.DefaultProvider), cfger.GetTarget())
	return nil
}
