// Package ollama streams from a local Ollama server's newline-delimited JSON
// chat endpoint.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
)

// DefaultBaseURL is the local Ollama server.
const DefaultBaseURL = "http://localhost:11434"

// DefaultModels is the static list of models served when none are configured.
var DefaultModels = []string{
	"llama3.2",
	"qwen2.5",
	"mistral",
}

// Config configures the Ollama adapter.
type Config struct {
	BaseURL string
	Models  []string

	// StreamClient performs the streaming call. It must not retry.
	StreamClient *http.Client

	// ProbeClient performs non-streaming health probes. It may retry.
	ProbeClient *http.Client

	Logger *slog.Logger
}

// Adapter implements provider.Adapter for Ollama. Ollama needs no credential.
type Adapter struct {
	config Config
}

// New creates an Ollama adapter.
func New(config Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if len(config.Models) == 0 {
		config.Models = DefaultModels
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
	return provider.Ollama
}

func (a *Adapter) SupportedModels() []string {
	return a.config.Models
}

// Stream posts to /api/chat. Every line is one JSON object; the object with
// done=true finishes the turn.
func (a *Adapter) Stream(ctx context.Context, req *llm.ChatRequest, emit provider.EmitFunc) (*llm.Completion, error) {
	model := req.Model
	if model == "" {
		model = a.config.Models[0]
	}

	temperature := req.GetTemperature()
	maxTokens := req.GetMaxTokens()
	upstreamReq := chatRequest{
		Model:  model,
		Stream: true,
		Options: &chatOptions{
			Temperature: &temperature,
			NumPredict:  &maxTokens,
		},
	}
	for _, m := range req.NonEmptyMessages() {
		upstreamReq.Messages = append(upstreamReq.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(upstreamReq)
	if err != nil {
		return nil, fmt.Errorf("encoding ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := provider.Do(a.config.StreamClient, provider.Ollama, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	acc := provider.NewAccumulator(emit)
	acc.Model = model

	scanner := bufio.NewScanner(resp.Body)
	// Increase buffer size for large chunks
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk chatLine
		if err := provider.DecodeFragment(provider.Ollama, line, &chunk); err != nil {
			a.config.Logger.Warn("skipping malformed ollama line",
				"error", err,
			)
			continue
		}

		if chunk.Error != "" {
			return nil, &provider.TransportError{
				Provider: provider.Ollama,
				Message:  chunk.Error,
				Err:      fmt.Errorf("stream error: %s", chunk.Error),
			}
		}

		if err := acc.Append(chunk.Message.Content); err != nil {
			return nil, err
		}

		if chunk.Done {
			acc.FinishReason = chunk.DoneReason
			acc.Usage = &llm.Usage{
				PromptTokens:     chunk.PromptEvalCount,
				CompletionTokens: chunk.EvalCount,
			}
			return acc.Finish()
		}
	}

	if err := scanner.Err(); err != nil {
		if !provider.Truncated(ctx, err) {
			return nil, provider.ReadError(ctx, provider.Ollama, err)
		}
		a.config.Logger.Debug("ollama connection dropped mid-stream",
			"content_length", len(acc.Content()),
		)
	}

	return acc.Finish()
}

// HealthCheck probes GET /api/tags.
func (a *Adapter) HealthCheck(ctx context.Context) llm.Health {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return provider.UnhealthyConfig(err, a.config.Models)
	}

	return provider.ProbeHealth(a.config.ProbeClient, provider.Ollama, httpReq, a.config.Models)
}
