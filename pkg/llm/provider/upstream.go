package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/utils"
)

// maxErrorBody bounds how much of a failed upstream response is read for
// the error message.
const maxErrorBody = 4 * 1024

// Do sends req and classifies the outcome: transport failures become a
// TransportError, 401/403 an AuthError, and any other non-2xx status a
// TransportError carrying the status. On success the caller owns resp.Body.
// A User-Agent is set when req carries none.
func Do(client *http.Client, providerName string, req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", utils.UserAgent())
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Provider: providerName, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	msg := readErrorMessage(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{Provider: providerName, StatusCode: resp.StatusCode, Message: msg}
	}

	return nil, &TransportError{Provider: providerName, StatusCode: resp.StatusCode, Message: msg}
}

// WithUserAgent returns a copy of client that sets the chatgate User-Agent on
// requests carrying none. It is for SDK clients that never pass through Do.
func WithUserAgent(client *http.Client) *http.Client {
	c := *client
	c.Transport = userAgentTransport{next: client.Transport}
	return &c
}

type userAgentTransport struct {
	next http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", utils.UserAgent())
	}
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

// readErrorMessage extracts a human readable message from an upstream error
// body. Both Anthropic and OpenAI shapes carry {"error":{"message":...}}.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &envelope) == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}

	return strings.TrimSpace(string(raw))
}

// ReadError classifies an error raised mid-stream while reading the upstream
// body. Cancellation is passed through untouched.
func ReadError(ctx context.Context, providerName string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &TransportError{Provider: providerName, Err: fmt.Errorf("reading stream: %w", err)}
}

// Truncated reports whether err means the upstream dropped the connection
// mid-body (no terminating chunk) while ctx is still live. Adapters treat it
// like a close without a finish signal and finish with what they have.
func Truncated(ctx context.Context, err error) bool {
	return ctx.Err() == nil && errors.Is(err, io.ErrUnexpectedEOF)
}

// MissingKey returns the ConfigurationError for an absent credential.
func MissingKey(providerName string) error {
	return &ConfigurationError{Provider: providerName, Reason: "no API key configured"}
}

// ProbeHealth performs a non-streaming liveness request (typically a models
// listing) and reports ok with models when the upstream answers 2xx.
func ProbeHealth(client *http.Client, providerName string, req *http.Request, models []string) llm.Health {
	resp, err := Do(client, providerName, req)
	if err != nil {
		return llm.Health{Status: llm.HealthError, Models: models, Error: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return llm.Health{Status: llm.HealthOK, Models: models}
}

// UnhealthyConfig reports a configuration problem as health without any network call.
func UnhealthyConfig(err error, models []string) llm.Health {
	return llm.Health{Status: llm.HealthError, Models: models, Error: err.Error()}
}
