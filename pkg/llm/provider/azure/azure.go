// Package azure streams from Azure OpenAI deployments through the go-openai
// client's Azure mode, consuming its typed stream rather than raw frames.
package azure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
)

// DefaultAPIVersion is the data-plane api-version query parameter.
const DefaultAPIVersion = "2024-10-21"

// DefaultModels are deployment names served when none are configured.
var DefaultModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
}

// Config configures the Azure OpenAI adapter.
type Config struct {
	// Endpoint is the resource endpoint (e.g., "https://my-resource.openai.azure.com")
	Endpoint string

	// APIVersion is the api-version query parameter.
	APIVersion string

	// Models are the deployment names this resource serves. Requests use the
	// model name as the deployment name; the first is used when none is given.
	Models []string

	// Key returns the current api-key.
	Key provider.KeyFunc

	// StreamClient performs the streaming call. It must not retry.
	StreamClient *http.Client

	// ProbeClient performs non-streaming health probes. It may retry.
	ProbeClient *http.Client

	Logger *slog.Logger
}

// Adapter implements provider.Adapter for Azure OpenAI.
type Adapter struct {
	config Config
}

// New creates an Azure OpenAI adapter.
func New(config Config) *Adapter {
	if config.APIVersion == "" {
		config.APIVersion = DefaultAPIVersion
	}
	if len(config.Models) == 0 {
		config.Models = DefaultModels
	}
	if config.Key == nil {
		config.Key = provider.StaticKey("")
	}
	if config.StreamClient == nil {
		config.StreamClient = &http.Client{}
	}
	if config.ProbeClient == nil {
		config.ProbeClient = config.StreamClient
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Adapter{config: config}
}

func (a *Adapter) Name() string {
	return provider.Azure
}

func (a *Adapter) SupportedModels() []string {
	return a.config.Models
}

// client builds a go-openai client for the current key. Model names map to
// deployment names unchanged.
func (a *Adapter) client(httpClient *http.Client) *openai.Client {
	cfg := openai.DefaultAzureConfig(a.config.Key(), a.config.Endpoint)
	cfg.APIVersion = a.config.APIVersion
	cfg.AzureModelMapperFunc = func(model string) string { return model }
	cfg.HTTPClient = provider.WithUserAgent(httpClient)
	return openai.NewClientWithConfig(cfg)
}

// Stream receives typed updates until the stream reports io.EOF, which is
// the finish signal whether or not [DONE] arrived. Updates without choices
// (prompt-filter annotations) carry no text and are skipped.
func (a *Adapter) Stream(ctx context.Context, req *llm.ChatRequest, emit provider.EmitFunc) (*llm.Completion, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}

	deployment := req.Model
	if deployment == "" {
		deployment = a.config.Models[0]
	}

	upstreamReq := openai.ChatCompletionRequest{
		Model:       deployment,
		MaxTokens:   req.GetMaxTokens(),
		Temperature: float32(req.GetTemperature()),
		Stream:      true,
	}
	for _, m := range req.NonEmptyMessages() {
		upstreamReq.Messages = append(upstreamReq.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	stream, err := a.client(a.config.StreamClient).CreateChatCompletionStream(ctx, upstreamReq)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer stream.Close()

	acc := provider.NewAccumulator(emit)
	acc.Model = deployment

	for {
		update, err := stream.Recv()
		switch {
		case errors.Is(err, io.EOF):
			return acc.Finish()
		case provider.Truncated(ctx, err):
			a.config.Logger.Debug("azure connection dropped mid-stream",
				"content_length", len(acc.Content()),
			)
			return acc.Finish()
		case isDecodeError(err):
			a.config.Logger.Warn("skipping malformed azure update",
				"error", err,
			)
			continue
		case err != nil:
			return nil, classify(ctx, err)
		}

		acc.SetID(update.ID)
		if update.Model != "" {
			acc.Model = update.Model
		}
		if update.Usage != nil {
			acc.Usage = &llm.Usage{
				PromptTokens:     update.Usage.PromptTokens,
				CompletionTokens: update.Usage.CompletionTokens,
				TotalTokens:      update.Usage.TotalTokens,
			}
		}

		for _, choice := range update.Choices {
			if choice.Index != 0 {
				continue
			}
			if err := acc.Append(choice.Delta.Content); err != nil {
				return nil, err
			}
			if choice.FinishReason != "" {
				acc.FinishReason = string(choice.FinishReason)
			}
		}
	}
}

// HealthCheck lists the resource's models (GET /openai/models).
func (a *Adapter) HealthCheck(ctx context.Context) llm.Health {
	if err := a.checkConfig(); err != nil {
		return provider.UnhealthyConfig(err, a.config.Models)
	}

	if _, err := a.client(a.config.ProbeClient).ListModels(ctx); err != nil {
		return provider.UnhealthyConfig(classify(ctx, err), a.config.Models)
	}
	return llm.Health{Status: llm.HealthOK, Models: a.config.Models}
}

func (a *Adapter) checkConfig() error {
	if a.config.Endpoint == "" {
		return &provider.ConfigurationError{Provider: provider.Azure, Reason: "no endpoint configured"}
	}
	if a.config.Key() == "" {
		return provider.MissingKey(provider.Azure)
	}
	return nil
}
