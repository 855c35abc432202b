// Package chatgatecmder is the root chatgate command.
package chatgatecmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/chatgate/cmd/chatgate/auth"
	chatcmder "github.com/papercomputeco/chatgate/cmd/chatgate/chat"
	configcmder "github.com/papercomputeco/chatgate/cmd/chatgate/config"
	initcmder "github.com/papercomputeco/chatgate/cmd/chatgate/init"
	modelscmder "github.com/papercomputeco/chatgate/cmd/chatgate/models"
	servecmder "github.com/papercomputeco/chatgate/cmd/chatgate/serve"
	versioncmder "github.com/papercomputeco/chatgate/cmd/version"
)

const chatgateLongDesc string = `chatgate is a streaming chat gateway in front of Anthropic, OpenAI,
Azure OpenAI and Ollama.

Run the gateway and talk to it:
  chatgate serve       Run the gateway server
  chatgate chat        Interactive chat through a running gateway
  chatgate models      List the models a gateway serves

Setup:
  chatgate init        Create a local .chatgate/ directory
  chatgate auth        Store provider API keys
  chatgate config      Manage persistent configuration`

const chatgateShortDesc string = "chatgate - streaming multi-provider chat gateway"

func NewChatgateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chatgate",
		Short:         chatgateShortDesc,
		Long:          chatgateLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .chatgate/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(modelscmder.NewModelsCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
