// Package modelscmder provides the models command, which lists what a
// running gateway serves.
package modelscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatgate/gateway"
	"github.com/papercomputeco/chatgate/pkg/cliui"
	"github.com/papercomputeco/chatgate/pkg/config"
	"github.com/papercomputeco/chatgate/pkg/credentials"
	"github.com/papercomputeco/chatgate/pkg/httpretry"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/streamclient"
)

type modelsCommander struct {
	configDir string
	target    string
	jsonOut   bool
	cfg       *config.Config

	client *http.Client
}

const modelsLongDesc string = `List the models served by a running gateway, grouped by provider.

Examples:
  chatgate models
  chatgate models --target http://gateway.internal:8080 --json`

const modelsShortDesc string = "List models served by the gateway"

func NewModelsCmd() *cobra.Command {
	cmder := &modelsCommander{}

	cmd := &cobra.Command{
		Use:   "models",
		Short: modelsShortDesc,
		Long:  modelsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagTarget})

			cmder.cfg, err = config.Resolve(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the raw JSON response")

	return cmd
}

func (c *modelsCommander) run(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	store, err := credentials.NewStore(mgr, nil)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if c.client == nil {
		c.client = httpretry.New(httpretry.DefaultOptions())
	}

	models, err := c.fetch(ctx, store.Token())
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}

	render(out, models)
	return nil
}

func (c *modelsCommander) fetch(ctx context.Context, token string) (*gateway.ModelsResponse, error) {
	url := strings.TrimSuffix(c.cfg.Client.Target, "/") + gateway.ModelsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := provider.Do(c.client, streamclient.GatewayName, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	models := &gateway.ModelsResponse{}
	if err := json.NewDecoder(resp.Body).Decode(models); err != nil {
		return nil, fmt.Errorf("decoding models: %w", err)
	}
	return models, nil
}

func render(out io.Writer, models *gateway.ModelsResponse) {
	providers := make([]string, 0, len(models.Providers))
	for p := range models.Providers {
		providers = append(providers, p)
	}
	slices.Sort(providers)

	fmt.Fprintln(out)
	for _, p := range providers {
		header := cliui.NameStyle.Render(p)
		if p == models.Default {
			header += " " + cliui.DimStyle.Render("(default)")
		}
		fmt.Fprintf(out, "  %s\n", header)
		for _, m := range models.Providers[p] {
			fmt.Fprintf(out, "    %s\n", cliui.ValueStyle.Render(m))
		}
		fmt.Fprintln(out)
	}
}
