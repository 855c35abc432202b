// Package openai
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/sse"
)

// DefaultBaseURL is OpenAI's public API endpoint.
const DefaultBaseURL = "https://api.openai.com"

// DefaultModels is the static list of models served when none are configured.
var DefaultModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
	"o3-mini",
}

// Config configures the OpenAI adapter.
type Config struct {
	// BaseURL is the API root (e.g., "https://api.openai.com")
	BaseURL string

	// Models is the static supported model list. The first is used when a
	// request names no model.
	Models []string

	// Key returns the current API key.
	Key provider.KeyFunc

	// StreamClient performs the streaming call. It must not retry.
	StreamClient *http.Client

	// ProbeClient performs non-streaming health probes. It may retry.
	ProbeClient *http.Client

	Logger *slog.Logger
}

// Adapter implements provider.Adapter for OpenAI's Chat Completions API.
type Adapter struct {
	config Config
}

// New creates an OpenAI adapter, filling unset Config fields with defaults.
func New(config Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
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
	return provider.OpenAI
}

func (a *Adapter) SupportedModels() []string {
	return a.config.Models
}

// Stream posts to /v1/chat/completions with stream=true. Each "data:" line
// is one JSON chunk; the turn finishes on the [DONE] sentinel or when the
// connection closes. A finish_reason is recorded but does not end the read,
// because the usage chunk follows it.
func (a *Adapter) Stream(ctx context.Context, req *llm.ChatRequest, emit provider.EmitFunc) (*llm.Completion, error) {
	key := a.config.Key()
	if key == "" {
		return nil, provider.MissingKey(provider.OpenAI)
	}

	upstreamReq := a.buildRequest(req)
	body, err := json.Marshal(upstreamReq)
	if err != nil {
		return nil, fmt.Errorf("encoding openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building openai request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := provider.Do(a.config.StreamClient, provider.OpenAI, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	acc := provider.NewAccumulator(emit)
	acc.Model = upstreamReq.Model

	reader := sse.NewReader(resp.Body)
	for {
		ev, err := reader.Next()
		if provider.Truncated(ctx, err) {
			a.config.Logger.Debug("openai connection dropped mid-stream",
				"content_length", len(acc.Content()),
			)
			return acc.Finish()
		}
		if err != nil {
			return nil, provider.ReadError(ctx, provider.OpenAI, err)
		}
		if ev == nil {
			a.config.Logger.Debug("openai stream closed without [DONE]",
				"content_length", len(acc.Content()),
			)
			return acc.Finish()
		}

		if ev.IsDone() {
			return acc.Finish()
		}
		data := ev.Payload()
		if data == "" {
			continue
		}

		var chunk chatChunk
		if err := provider.DecodeFragment(provider.OpenAI, data, &chunk); err != nil {
			a.config.Logger.Warn("skipping malformed openai chunk",
				"error", err,
			)
			continue
		}

		if chunk.Error != nil {
			if provider.IsAuthMessage(chunk.Error.Message) {
				return nil, &provider.AuthError{Provider: provider.OpenAI, Message: chunk.Error.Message}
			}
			return nil, &provider.TransportError{
				Provider: provider.OpenAI,
				Message:  chunk.Error.Message,
				Err:      fmt.Errorf("stream error: %s", chunk.Error.Message),
			}
		}

		acc.SetID(chunk.ID)
		if chunk.Model != "" {
			acc.Model = chunk.Model
		}
		if chunk.Usage != nil {
			acc.Usage = &llm.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if err := acc.Append(choice.Delta.Content); err != nil {
			return nil, err
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			acc.FinishReason = *choice.FinishReason
		}
	}
}

// HealthCheck probes GET /v1/models.
func (a *Adapter) HealthCheck(ctx context.Context) llm.Health {
	key := a.config.Key()
	if key == "" {
		return provider.UnhealthyConfig(provider.MissingKey(provider.OpenAI), a.config.Models)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/v1/models", nil)
	if err != nil {
		return provider.UnhealthyConfig(err, a.config.Models)
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)

	return provider.ProbeHealth(a.config.ProbeClient, provider.OpenAI, httpReq, a.config.Models)
}

func (a *Adapter) buildRequest(req *llm.ChatRequest) chatRequest {
	model := req.Model
	if model == "" {
		model = a.config.Models[0]
	}

	temperature := req.GetTemperature()
	out := chatRequest{
		Model:         model,
		MaxTokens:     req.GetMaxTokens(),
		Temperature:   &temperature,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}

	for _, m := range req.NonEmptyMessages() {
		out.Messages = append(out.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	return out
}
