// Package configcmder provides the config command for managing persistent
// chatgate configuration stored in the .chatgate/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatgate/pkg/cliui"
	"github.com/papercomputeco/chatgate/pkg/config"
)

const configLongDesc string = `Manage persistent chatgate configuration.

Configuration is stored as config.toml in the .chatgate/ directory and provides
default values for command flags. CLI flags and CHATGATE_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  gateway.listen, gateway.default_provider, gateway.heartbeat,
  providers.azure.base_url, providers.openai.models,
  storage.sqlite_path, events.kafka_brokers,
  telemetry.otlp_endpoint, client.target, client.model

List values such as providers.openai.models are written comma separated.

Use subcommands to get, set, or list configuration values:
  chatgate config set <key> <value>    Set a configuration value
  chatgate config get <key>            Get a configuration value
  chatgate config list                 List all configuration values

Examples:
  chatgate config set gateway.default_provider anthropic
  chatgate config set providers.ollama.models llama3.2,qwen2.5
  chatgate config get client.target
  chatgate config list`

const configShortDesc string = "Manage persistent chatgate configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(out io.Writer, cfger *config.Configer) {
	fmt.Fprintf(out, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Config file:"),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
}
