package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent chatgate configuration stored as config.toml
// in the .chatgate/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Gateway   GatewayConfig   `toml:"gateway"`
	Providers ProvidersConfig `toml:"providers"`
	Storage   StorageConfig   `toml:"storage"`
	Events    EventsConfig    `toml:"events"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Client    ClientConfig    `toml:"client"`
}

// GatewayConfig holds settings for "chatgate serve".
type GatewayConfig struct {
	Listen          string `toml:"listen,omitempty"`
	DefaultProvider string `toml:"default_provider,omitempty"`
	AuthToken       string `toml:"auth_token,omitempty"`

	// Heartbeat is a Go duration string ("15s"). Empty disables keepalives.
	Heartbeat string `toml:"heartbeat,omitempty"`

	Workers uint `toml:"workers,omitempty"`
}

// HeartbeatInterval parses Heartbeat. An empty value yields zero.
func (g GatewayConfig) HeartbeatInterval() (time.Duration, error) {
	if g.Heartbeat == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(g.Heartbeat)
	if err != nil {
		return 0, fmt.Errorf("invalid value for gateway.heartbeat: %w", err)
	}
	return d, nil
}

// ProvidersConfig holds per-provider endpoint settings. API keys live in
// credentials.toml, never here.
type ProvidersConfig struct {
	Anthropic ProviderConfig `toml:"anthropic"`
	OpenAI    ProviderConfig `toml:"openai"`
	Azure     ProviderConfig `toml:"azure"`
	Ollama    ProviderConfig `toml:"ollama"`
}

// ProviderConfig configures one upstream.
type ProviderConfig struct {
	BaseURL string   `toml:"base_url,omitempty"`
	Models  []string `toml:"models,omitempty"`

	// APIVersion is the anthropic-version header for Anthropic and the
	// api-version query parameter for Azure.
	APIVersion string `toml:"api_version,omitempty"`
}

// StorageConfig selects the completed-turn store. Postgres wins when both
// are set; neither means in-memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventsConfig configures turn-completed event publishing.
type EventsConfig struct {
	KafkaBrokers []string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string   `toml:"kafka_topic,omitempty"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	OTLPEndpoint string `toml:"otlp_endpoint,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// gateway (e.g. chatgate chat, chatgate models). Target is a full URL.
type ClientConfig struct {
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	Provider string `toml:"provider,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// listKey exposes a string slice as a comma separated value.
func listKey(field func(c *Config) *[]string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strings.Join(*field(c), ",") },
		set: func(c *Config, v string) error { *field(c) = splitList(v); return nil },
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"gateway.listen":           stringKey(func(c *Config) *string { return &c.Gateway.Listen }),
	"gateway.default_provider": stringKey(func(c *Config) *string { return &c.Gateway.DefaultProvider }),
	"gateway.auth_token":       stringKey(func(c *Config) *string { return &c.Gateway.AuthToken }),
	"gateway.heartbeat": {
		get: func(c *Config) string { return c.Gateway.Heartbeat },
		set: func(c *Config, v string) error {
			if v != "" {
				if _, err := time.ParseDuration(v); err != nil {
					return fmt.Errorf("invalid value for gateway.heartbeat: %w", err)
				}
			}
			c.Gateway.Heartbeat = v
			return nil
		},
	},
	"gateway.workers": {
		get: func(c *Config) string {
			if c.Gateway.Workers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Gateway.Workers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for gateway.workers: %w", err)
			}
			c.Gateway.Workers = uint(n)
			return nil
		},
	},

	"providers.anthropic.base_url":    stringKey(func(c *Config) *string { return &c.Providers.Anthropic.BaseURL }),
	"providers.anthropic.models":      listKey(func(c *Config) *[]string { return &c.Providers.Anthropic.Models }),
	"providers.anthropic.api_version": stringKey(func(c *Config) *string { return &c.Providers.Anthropic.APIVersion }),
	"providers.openai.base_url":       stringKey(func(c *Config) *string { return &c.Providers.OpenAI.BaseURL }),
	"providers.openai.models":         listKey(func(c *Config) *[]string { return &c.Providers.OpenAI.Models }),
	"providers.azure.base_url":        stringKey(func(c *Config) *string { return &c.Providers.Azure.BaseURL }),
	"providers.azure.models":          listKey(func(c *Config) *[]string { return &c.Providers.Azure.Models }),
	"providers.azure.api_version":     stringKey(func(c *Config) *string { return &c.Providers.Azure.APIVersion }),
	"providers.ollama.base_url":       stringKey(func(c *Config) *string { return &c.Providers.Ollama.BaseURL }),
	"providers.ollama.models":         listKey(func(c *Config) *[]string { return &c.Providers.Ollama.Models }),

	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"events.kafka_brokers": listKey(func(c *Config) *[]string { return &c.Events.KafkaBrokers }),
	"events.kafka_topic":   stringKey(func(c *Config) *string { return &c.Events.KafkaTopic }),

	"telemetry.otlp_endpoint": stringKey(func(c *Config) *string { return &c.Telemetry.OTLPEndpoint }),

	"client.target":   stringKey(func(c *Config) *string { return &c.Client.Target }),
	"client.model":    stringKey(func(c *Config) *string { return &c.Client.Model }),
	"client.provider": stringKey(func(c *Config) *string { return &c.Client.Provider }),
}

// orderedKeys is the listing order for ValidConfigKeys, matching the TOML layout.
var orderedKeys = []string{
	"gateway.listen",
	"gateway.default_provider",
	"gateway.auth_token",
	"gateway.heartbeat",
	"gateway.workers",
	"providers.anthropic.base_url",
	"providers.anthropic.models",
	"providers.anthropic.api_version",
	"providers.openai.base_url",
	"providers.openai.models",
	"providers.azure.base_url",
	"providers.azure.models",
	"providers.azure.api_version",
	"providers.ollama.base_url",
	"providers.ollama.models",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"events.kafka_brokers",
	"events.kafka_topic",
	"telemetry.otlp_endpoint",
	"client.target",
	"client.model",
	"client.provider",
}
