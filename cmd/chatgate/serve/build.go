package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/papercomputeco/chatgate/pkg/config"
	"github.com/papercomputeco/chatgate/pkg/credentials"
	"github.com/papercomputeco/chatgate/pkg/eventstream"
	"github.com/papercomputeco/chatgate/pkg/eventstream/kafka"
	"github.com/papercomputeco/chatgate/pkg/eventstream/nop"
	"github.com/papercomputeco/chatgate/pkg/httpretry"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/chatgate/pkg/llm/provider/azure"
	"github.com/papercomputeco/chatgate/pkg/llm/provider/ollama"
	"github.com/papercomputeco/chatgate/pkg/llm/provider/openai"
	"github.com/papercomputeco/chatgate/pkg/storage"
	"github.com/papercomputeco/chatgate/pkg/storage/inmemory"
	"github.com/papercomputeco/chatgate/pkg/storage/postgres"
	"github.com/papercomputeco/chatgate/pkg/storage/sqlite"
)

// buildAdapters constructs one adapter per configured provider. Azure needs
// a resource endpoint and is skipped without one.
func buildAdapters(cfg config.ProvidersConfig, store *credentials.Store, l *slog.Logger) []provider.Adapter {
	stream := &http.Client{}

	adapters := []provider.Adapter{
		openai.New(openai.Config{
			BaseURL:      cfg.OpenAI.BaseURL,
			Models:       cfg.OpenAI.Models,
			Key:          store.KeyFunc(provider.OpenAI),
			StreamClient: stream,
			ProbeClient:  probeClient(store, provider.OpenAI, l),
			Logger:       l,
		}),
		anthropic.New(anthropic.Config{
			BaseURL:      cfg.Anthropic.BaseURL,
			Version:      cfg.Anthropic.APIVersion,
			Models:       cfg.Anthropic.Models,
			Key:          store.KeyFunc(provider.Anthropic),
			StreamClient: stream,
			ProbeClient:  probeClient(store, provider.Anthropic, l),
			Logger:       l,
		}),
		ollama.New(ollama.Config{
			BaseURL:      cfg.Ollama.BaseURL,
			Models:       cfg.Ollama.Models,
			StreamClient: stream,
			ProbeClient:  probeClient(nil, provider.Ollama, l),
			Logger:       l,
		}),
	}

	if cfg.Azure.BaseURL != "" {
		adapters = append(adapters, azure.New(azure.Config{
			Endpoint:     cfg.Azure.BaseURL,
			APIVersion:   cfg.Azure.APIVersion,
			Models:       cfg.Azure.Models,
			Key:          store.KeyFunc(provider.Azure),
			StreamClient: stream,
			ProbeClient:  probeClient(store, provider.Azure, l),
			Logger:       l,
		}))
	}

	return adapters
}

// probeClient is the retrying client used for health probes. A nil store
// disables the refresh-and-replay on 401.
func probeClient(store *credentials.Store, providerID string, l *slog.Logger) *http.Client {
	opts := httpretry.DefaultOptions()
	opts.Logger = l.With("provider", providerID)
	if store != nil {
		opts.Refresh = refresher(store, providerID)
	}
	return httpretry.New(opts)
}

// refresher reloads credentials.toml and rewrites the provider's auth header.
func refresher(store *credentials.Store, providerID string) httpretry.RefreshFunc {
	return func(_ context.Context, req *http.Request) error {
		if err := store.Reload(); err != nil {
			return err
		}

		key := store.Key(providerID)
		if key == "" {
			return errors.New("no credential after reload")
		}

		switch providerID {
		case provider.Anthropic:
			req.Header.Set("x-api-key", key)
		case provider.Azure:
			req.Header.Set("api-key", key)
		default:
			req.Header.Set("Authorization", "Bearer "+key)
		}
		return nil
	}
}

// newStorageDriver picks Postgres, then SQLite, then in-memory.
func newStorageDriver(ctx context.Context, cfg config.StorageConfig, l *slog.Logger) (storage.Driver, error) {
	switch {
	case cfg.PostgresDSN != "":
		driver, err := postgres.NewDriver(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		l.Info("using PostgreSQL storage")
		return driver, nil

	case cfg.SQLitePath != "":
		driver, err := sqlite.NewSQLiteDriver(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		l.Info("using SQLite storage", "path", cfg.SQLitePath)
		return driver, nil

	default:
		l.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	}
}

// newPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func newPublisher(cfg config.EventsConfig, l *slog.Logger) (eventstream.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nop.NewPublisher(), nil
	}

	p, err := kafka.NewPublisher(kafka.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}
	l.Info("publishing turn events", "brokers", cfg.KafkaBrokers, "topic", p.Topic())
	return p, nil
}
