// Package chat is the single entry point for a conversation turn: it resolves
// a provider adapter, streams through it, and reports exactly one terminal
// outcome to a Sink.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
)

const tracerName = "github.com/papercomputeco/chatgate/pkg/chat"

// ErrEmptyConversation is reported when a request carries no message with content.
var ErrEmptyConversation = errors.New("conversation has no messages with content")

// Sink receives the Chunk sequence of one turn followed by exactly one of
// OnComplete or OnError.
type Sink interface {
	// OnChunk receives each Chunk in emission order. Returning an error
	// aborts the turn (e.g. the client disconnected).
	OnChunk(chunk llm.Chunk) error

	// OnComplete is called once after the done Chunk has been delivered.
	OnComplete(completion llm.Completion)

	// OnError is called once for any failure, including resolution failures
	// raised before a provider was contacted.
	OnError(err error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		o.tracer = tp.Tracer(tracerName)
	}
}

// Orchestrator composes the Registry and the adapters. It adds no buffering.
type Orchestrator struct {
	registry *provider.Registry
	tracer   trace.Tracer
	logger   *slog.Logger
}

// New creates an Orchestrator over registry.
func New(registry *provider.Registry, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry returns the provider registry the orchestrator resolves against.
func (o *Orchestrator) Registry() *provider.Registry {
	return o.registry
}

// StreamChat runs one turn. Chunks are forwarded to sink unmodified; every
// failure, whether from resolution, the adapter, or a panic inside it,
// arrives through sink.OnError.
func (o *Orchestrator) StreamChat(ctx context.Context, req *llm.ChatRequest, sink Sink) {
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "chat.stream",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("chat.request.model", req.Model),
			attribute.Int("chat.request.messages", len(req.Messages)),
		),
	)
	defer span.End()

	if len(req.NonEmptyMessages()) == 0 {
		o.fail(span, sink, ErrEmptyConversation)
		return
	}

	adapter, err := o.registry.Resolve(req)
	if err != nil {
		o.fail(span, sink, err)
		return
	}
	span.SetAttributes(attribute.String("chat.provider", adapter.Name()))

	chunks := 0
	emit := func(c llm.Chunk) error {
		chunks++
		return sink.OnChunk(c)
	}

	completion, err := o.invoke(ctx, adapter, req, emit)
	span.SetAttributes(attribute.Int("chat.chunks", chunks))

	if err != nil {
		logFn := o.logger.Warn
		if errors.Is(err, context.Canceled) {
			logFn = o.logger.Debug
		}
		logFn("chat turn failed",
			"provider", adapter.Name(),
			"model", req.Model,
			"chunk_count", chunks,
			"duration", time.Since(start),
			"error", err,
		)
		o.fail(span, sink, err)
		return
	}

	span.SetAttributes(
		attribute.String("chat.response.model", completion.Model),
		attribute.String("chat.response.finish_reason", completion.FinishReason),
	)
	if completion.Usage != nil {
		span.SetAttributes(
			attribute.Int("chat.usage.prompt_tokens", completion.Usage.PromptTokens),
			attribute.Int("chat.usage.completion_tokens", completion.Usage.CompletionTokens),
		)
	}
	span.SetStatus(codes.Ok, "")

	o.logger.Info("chat turn completed",
		"provider", adapter.Name(),
		"model", completion.Model,
		"chunk_count", chunks,
		"finish_reason", completion.FinishReason,
		"duration", time.Since(start),
	)

	completion.Provider = adapter.Name()
	sink.OnComplete(*completion)
}

// invoke calls the adapter and converts a panic into an error so a faulty
// adapter cannot take down the serving goroutine or skip the terminal callback.
func (o *Orchestrator) invoke(ctx context.Context, adapter provider.Adapter, req *llm.ChatRequest, emit provider.EmitFunc) (completion *llm.Completion, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("provider adapter panicked",
				"provider", adapter.Name(),
				"panic", rec,
			)
			completion, err = nil, fmt.Errorf("%s: adapter panicked: %v", adapter.Name(), rec)
		}
	}()

	completion, err = adapter.Stream(ctx, req, emit)
	if err == nil && completion == nil {
		err = fmt.Errorf("%s: adapter returned no completion", adapter.Name())
	}
	return completion, err
}

func (o *Orchestrator) fail(span trace.Span, sink Sink, err error) {
	if !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	sink.OnError(err)
}
