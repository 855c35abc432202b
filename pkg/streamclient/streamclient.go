// Package streamclient consumes the gateway's SSE chunk stream.
//
// It is the inverse of the gateway relay: bytes from each network read are fed
// through an sse.Decoder that carries any incomplete line over to the next
// read, every complete "data: " payload is parsed as an llm.Chunk, and the
// chunk is dispatched to a Handler in arrival order.
//
// Failures use the same taxonomy as the provider adapters: the gateway leg is
// classified by provider.Do and provider.ReadError under GatewayName, so a
// rejected session token surfaces as a *provider.AuthError whose Provider is
// GatewayName. In-band error chunks arrive as *RemoteError.
package streamclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/logger"
	"github.com/papercomputeco/chatgate/pkg/sse"
)

// GatewayName labels errors raised by the gateway leg of a stream.
const GatewayName = "gateway"

// DefaultStreamPath is the gateway route streamed against.
const DefaultStreamPath = "/v1/chat/stream"

const readBufferSize = 4 * 1024

// Handler receives one stream's chunks followed by at most one of OnComplete
// or OnError. Neither fires once the stream's context is cancelled.
type Handler interface {
	OnChunk(chunk llm.Chunk)
	OnComplete()
	OnError(err error)
}

// TokenFunc returns the current bearer token, or "" for none.
type TokenFunc func() string

// RemoteError is an error chunk received from the gateway.
type RemoteError struct {
	ID      string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// IsSessionRejected reports whether the gateway itself refused the session
// token. Upstream provider auth failures relayed as *RemoteError do not count.
func IsSessionRejected(err error) bool {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return false
	}

	var authErr *provider.AuthError
	if errors.As(err, &authErr) {
		return authErr.Provider == GatewayName
	}

	var transportErr *provider.TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Provider == GatewayName &&
			(transportErr.StatusCode == http.StatusUnauthorized || transportErr.StatusCode == http.StatusForbidden)
	}
	return false
}

// Config configures a Client.
type Config struct {
	// BaseURL of the gateway (e.g., "http://localhost:8080")
	BaseURL string

	// Path overrides DefaultStreamPath.
	Path string

	// Token supplies the bearer token read before each stream opens.
	Token TokenFunc

	// HTTPClient defaults to a client with no timeout; streams are bounded
	// by their context.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client opens chat streams against a gateway.
type Client struct {
	url    string
	token  TokenFunc
	http   *http.Client
	logger *slog.Logger
}

// New creates a Client.
func New(config Config) *Client {
	path := config.Path
	if path == "" {
		path = DefaultStreamPath
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.Token == nil {
		config.Token = func() string { return "" }
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	return &Client{
		url:    strings.TrimSuffix(config.BaseURL, "/") + path,
		token:  config.Token,
		http:   config.HTTPClient,
		logger: config.Logger,
	}
}

// Stream sends req and dispatches the resulting chunks to h until a done or
// error chunk arrives, the connection closes, or ctx is cancelled.
//
// The returned error mirrors the terminal callback: nil after OnComplete, the
// OnError argument after OnError, and ctx.Err() when cancelled, in which case
// no callback fires at all.
func (c *Client) Stream(ctx context.Context, req *llm.ChatRequest, h Handler) error {
	body, err := json.Marshal(req)
	if err != nil {
		return c.fail(ctx, h, fmt.Errorf("encoding request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return c.fail(ctx, h, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if token := c.token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := provider.Do(c.http, GatewayName, httpReq)
	if err != nil {
		return c.fail(ctx, h, err)
	}
	defer resp.Body.Close()

	return c.read(ctx, resp.Body, h)
}

func (c *Client) read(ctx context.Context, body io.Reader, h Handler) error {
	dec := sse.NewDecoder()
	buf := make([]byte, readBufferSize)

	for {
		n, readErr := body.Read(buf)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var payloads []string
		if n > 0 {
			payloads = dec.Feed(buf[:n])
		}
		if readErr != nil {
			payloads = append(payloads, dec.Flush()...)
		}

		for _, payload := range payloads {
			if done, err := c.dispatch(ctx, payload, h); done {
				return err
			}
		}

		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) || provider.Truncated(ctx, readErr) {
			// Closed without a terminal chunk: complete with what arrived.
			c.logger.Debug("stream closed without a terminal chunk", "error", readErr)
			h.OnComplete()
			return nil
		}
		return c.fail(ctx, h, provider.ReadError(ctx, GatewayName, readErr))
	}
}

// dispatch handles one frame payload and reports whether the stream ended.
func (c *Client) dispatch(ctx context.Context, payload string, h Handler) (bool, error) {
	var chunk llm.Chunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		c.logger.Warn("skipping malformed frame", "error", err, "payload", payload)
		return false, nil
	}

	if err := ctx.Err(); err != nil {
		return true, err
	}

	switch chunk.Type {
	case llm.ChunkText:
		h.OnChunk(chunk)
		return false, nil
	case llm.ChunkDone:
		h.OnChunk(chunk)
		h.OnComplete()
		return true, nil
	case llm.ChunkError:
		err := &RemoteError{ID: chunk.ID, Message: chunk.Error}
		h.OnError(err)
		return true, err
	default:
		c.logger.Warn("skipping frame with unknown chunk type", "type", chunk.Type)
		return false, nil
	}
}

func (c *Client) fail(ctx context.Context, h Handler, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	h.OnError(err)
	return err
}

// HandlerFuncs adapts plain functions to a Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	Chunk    func(llm.Chunk)
	Complete func()
	Error    func(error)
}

func (f HandlerFuncs) OnChunk(chunk llm.Chunk) {
	if f.Chunk != nil {
		f.Chunk(chunk)
	}
}

func (f HandlerFuncs) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}

func (f HandlerFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}
