package config

import (
	"github.com/papercomputeco/chatgate/pkg/eventstream/kafka"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/chatgate/pkg/llm/provider/openai"
	"github.com/papercomputeco/chatgate/pkg/llm/provider/ollama"
)

const (
	defaultListen   = ":8080"
	defaultProvider = provider.OpenAI
	defaultWorkers  = 3

	defaultClientTarget = "http://localhost:8080"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Gateway: GatewayConfig{
			Listen:          defaultListen,
			DefaultProvider: defaultProvider,
			Workers:         defaultWorkers,
		},
		Providers: ProvidersConfig{
			Anthropic: ProviderConfig{BaseURL: anthropic.DefaultBaseURL},
			OpenAI:    ProviderConfig{BaseURL: openai.DefaultBaseURL},
			Ollama:    ProviderConfig{BaseURL: ollama.DefaultBaseURL},
		},
		Events: EventsConfig{
			KafkaTopic: kafka.DefaultTopic,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
	}
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Gateway.Listen == "" {
		cfg.Gateway.Listen = defaults.Gateway.Listen
	}
	if cfg.Gateway.DefaultProvider == "" {
		cfg.Gateway.DefaultProvider = defaults.Gateway.DefaultProvider
	}
	if cfg.Gateway.Workers == 0 {
		cfg.Gateway.Workers = defaults.Gateway.Workers
	}

	fillProvider(&cfg.Providers.Anthropic, defaults.Providers.Anthropic)
	fillProvider(&cfg.Providers.OpenAI, defaults.Providers.OpenAI)
	fillProvider(&cfg.Providers.Ollama, defaults.Providers.Ollama)

	if cfg.Events.KafkaTopic == "" {
		cfg.Events.KafkaTopic = defaults.Events.KafkaTopic
	}

	if cfg.Client.Target == "" {
		cfg.Client.Target = defaults.Client.Target
	}
}

func fillProvider(p *ProviderConfig, d ProviderConfig) {
	if p.BaseURL == "" {
		p.BaseURL = d.BaseURL
	}
}
