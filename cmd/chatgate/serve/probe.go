package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/papercomputeco/chatgate/pkg/cliui"
	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/utils"
)

const (
	probeTimeout = 10 * time.Second
	maxReasonLen = 72
	errUnhealthy = "unhealthy"
)

// probeProviders runs one health pass before the gateway starts listening
// and prints a line per provider. Unhealthy providers are reported, not fatal:
// keys may be added later through credentials.toml.
func probeProviders(ctx context.Context, w io.Writer, registry *provider.Registry) map[string]llm.Health {
	var results map[string]llm.Health

	_ = cliui.Step(w, "Probing providers", func() error {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		results = registry.HealthAll(probeCtx)
		for _, h := range results {
			if h.Status != llm.HealthOK {
				return errors.New(errUnhealthy)
			}
		}
		return nil
	})

	for _, name := range registry.Providers() {
		h := results[name]

		var err error
		if h.Status != llm.HealthOK {
			err = errors.New(h.Error)
		}

		line := fmt.Sprintf("    %s %s", cliui.Mark(err), cliui.NameStyle.Render(name))
		if name == registry.Default() {
			line += cliui.DimStyle.Render(" (default)")
		}
		if err != nil && h.Error != "" {
			line += " " + cliui.ErrorStyle.Render(utils.Truncate(h.Error, maxReasonLen))
		}
		fmt.Fprintln(w, line)
	}

	return results
}
