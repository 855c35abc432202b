// Package anthropic streams from Anthropic's Messages API over raw SSE.
package anthropic

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

const (
	// DefaultBaseURL is Anthropic's public API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultVersion is the anthropic-version header value.
	DefaultVersion = "2023-06-01"
)

// DefaultModels is the static list of models served when none are configured.
var DefaultModels = []string{
	"claude-sonnet-4-20250514",
	"claude-opus-4-20250514",
	"claude-3-7-sonnet-20250219",
	"claude-3-5-haiku-20241022",
}

// Config configures the Anthropic adapter.
type Config struct {
	// BaseURL is the API root (e.g., "https://api.anthropic.com")
	BaseURL string

	// Version is sent as the anthropic-version header.
	Version string

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

// Adapter implements provider.Adapter for Anthropic.
type Adapter struct {
	config Config
}

// New creates an Anthropic adapter, filling unset Config fields with defaults.
func New(config Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if config.Version == "" {
		config.Version = DefaultVersion
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

// Name
func (a *Adapter) Name() string {
	return provider.Anthropic
}

// SupportedModels
func (a *Adapter) SupportedModels() []string {
	return a.config.Models
}

// Stream sends the conversation to /v1/messages with stream=true and
// normalizes the event stream. message_stop finishes the turn; a closed
// connection without it finishes with the content received so far.
func (a *Adapter) Stream(ctx context.Context, req *llm.ChatRequest, emit provider.EmitFunc) (*llm.Completion, error) {
	key := a.config.Key()
	if key == "" {
		return nil, provider.MissingKey(provider.Anthropic)
	}

	upstreamReq := a.buildRequest(req)
	body, err := json.Marshal(upstreamReq)
	if err != nil {
		return nil, fmt.Errorf("encoding anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building anthropic request: %w", err)
	}
	a.setHeaders(httpReq, key)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := provider.Do(a.config.StreamClient, provider.Anthropic, httpReq)
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
			a.config.Logger.Debug("anthropic connection dropped mid-stream",
				"content_length", len(acc.Content()),
			)
			return acc.Finish()
		}
		if err != nil {
			return nil, provider.ReadError(ctx, provider.Anthropic, err)
		}
		if ev == nil {
			a.config.Logger.Debug("anthropic stream closed without message_stop",
				"content_length", len(acc.Content()),
			)
			return acc.Finish()
		}

		var payload streamEvent
		if err := provider.DecodeFragment(provider.Anthropic, ev.Data, &payload); err != nil {
			a.config.Logger.Warn("skipping malformed anthropic event",
				"event", ev.Name(),
				"error", err,
			)
			continue
		}

		eventType := payload.Type
		if eventType == "" {
			eventType = ev.Type
		}

		switch eventType {
		case eventMessageStart:
			if payload.Message != nil {
				acc.SetID(payload.Message.ID)
				if payload.Message.Model != "" {
					acc.Model = payload.Message.Model
				}
				if payload.Message.Usage != nil {
					acc.Usage = &llm.Usage{PromptTokens: payload.Message.Usage.InputTokens}
				}
			}

		case eventContentBlockDelta:
			if payload.Delta == nil {
				continue
			}
			if err := acc.Append(payload.Delta.Text); err != nil {
				return nil, err
			}

		case eventMessageDelta:
			if payload.Delta != nil && payload.Delta.StopReason != "" {
				acc.FinishReason = payload.Delta.StopReason
			}
			if payload.Usage != nil {
				if acc.Usage == nil {
					acc.Usage = &llm.Usage{}
				}
				acc.Usage.CompletionTokens = payload.Usage.OutputTokens
			}

		case eventMessageStop:
			return acc.Finish()

		case eventError:
			msg := "unknown error"
			if payload.Error != nil && payload.Error.Message != "" {
				msg = payload.Error.Message
			}
			if provider.IsAuthMessage(msg) {
				return nil, &provider.AuthError{Provider: provider.Anthropic, Message: msg}
			}
			return nil, &provider.TransportError{Provider: provider.Anthropic, Message: msg, Err: fmt.Errorf("stream error event: %s", msg)}

		case eventPing, eventContentBlockStart, eventContentBlockStop:
			// no content
		}
	}
}

// HealthCheck probes GET /v1/models.
func (a *Adapter) HealthCheck(ctx context.Context) llm.Health {
	key := a.config.Key()
	if key == "" {
		return provider.UnhealthyConfig(provider.MissingKey(provider.Anthropic), a.config.Models)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/v1/models", nil)
	if err != nil {
		return provider.UnhealthyConfig(err, a.config.Models)
	}
	a.setHeaders(httpReq, key)

	return provider.ProbeHealth(a.config.ProbeClient, provider.Anthropic, httpReq, a.config.Models)
}

func (a *Adapter) setHeaders(req *http.Request, key string) {
	req.Header.Set("x-api-key", key)
	req.Header.Set("anthropic-version", a.config.Version)
}

// buildRequest maps the normalized request onto the Messages API. System
// messages move to the top-level system field; empty messages are dropped.
func (a *Adapter) buildRequest(req *llm.ChatRequest) messagesRequest {
	model := req.Model
	if model == "" {
		model = a.config.Models[0]
	}

	out := messagesRequest{
		Model:     model,
		MaxTokens: req.GetMaxTokens(),
		Stream:    true,
	}
	temperature := req.GetTemperature()
	out.Temperature = &temperature

	var system []string
	for _, m := range req.NonEmptyMessages() {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		out.Messages = append(out.Messages, message{Role: m.Role, Content: m.Content})
	}
	out.System = strings.Join(system, "\n\n")

	return out
}
