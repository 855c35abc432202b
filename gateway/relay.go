package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/chatgate/gateway/worker"
	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/sse"
)

// handleStream decodes the request and relays one orchestrator turn as SSE
// frames. Once the handler returns the status and headers are fixed, so every
// later failure is reported in-band as an error chunk.
func (s *Server) handleStream(c *fiber.Ctx) error {
	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	if len(req.NonEmptyMessages()) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "messages must not be empty"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// The turn outlives the handler: fasthttp recycles the request context as
	// soon as the handler returns, while frames are still being written.
	ctx, cancel := context.WithCancel(s.turns)

	// io.Pipe gives per-frame backpressure: each Write blocks until fasthttp
	// has read the frame and flushed it as a chunk.
	pr, pw := io.Pipe()
	go s.relay(ctx, cancel, &req, pw)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

func (s *Server) relay(ctx context.Context, cancel context.CancelFunc, req *llm.ChatRequest, pw *io.PipeWriter) {
	defer pw.Close()
	defer cancel()

	started := time.Now()
	sink := &relaySink{
		writer: sse.NewWriter(pw),
		cancel: cancel,
		server: s,
	}

	stop := s.startHeartbeat(ctx, sink)
	s.chat.StreamChat(ctx, req, sink)
	stop()

	if sink.completion != nil {
		s.workerPool.Enqueue(worker.Job{
			Provider:   sink.completion.Provider,
			Request:    req,
			Completion: sink.completion,
			StartedAt:  started,
		})
	}
}

// startHeartbeat writes keep-alive comments until the returned stop func is
// called. Comments are not events, so stream clients skip them.
func (s *Server) startHeartbeat(ctx context.Context, sink *relaySink) (stop func()) {
	if s.config.Heartbeat <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Go(func() {
		ticker := time.NewTicker(s.config.Heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := sink.writer.WriteComment("keepalive"); err != nil {
					s.logger.Debug("heartbeat write failed, closing stream", "error", err)
					sink.cancel()
					return
				}
			}
		}
	})

	return func() {
		close(done)
		wg.Wait()
	}
}

// relaySink frames each orchestrator callback onto the pipe in call order.
type relaySink struct {
	writer *sse.Writer
	cancel context.CancelFunc
	server *Server

	lastID     string
	completion *llm.Completion
}

func (r *relaySink) OnChunk(chunk llm.Chunk) error {
	r.lastID = chunk.ID
	if err := r.writer.WriteJSON(chunk); err != nil {
		// The client is gone; stop the upstream read.
		r.cancel()
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

func (r *relaySink) OnComplete(completion llm.Completion) {
	r.completion = &completion
}

func (r *relaySink) OnError(err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, io.ErrClosedPipe) {
		r.server.logger.Debug("stream closed by client", "error", err)
		return
	}

	id := r.lastID
	if id == "" {
		id = uuid.NewString()
	}
	if werr := r.writer.WriteJSON(llm.ErrorChunk(id, clientMessage(err))); werr != nil {
		r.server.logger.Debug("could not deliver error frame", "error", werr)
	}
}

// clientMessage is the in-band text for err. Upstream credential failures
// are reworded so clients do not mistake them for a rejected session token.
func clientMessage(err error) string {
	if !provider.IsAuth(err) {
		return err.Error()
	}

	var authErr *provider.AuthError
	if errors.As(err, &authErr) && authErr.Provider != "" {
		return authErr.Provider + ": provider credentials rejected"
	}
	var transportErr *provider.TransportError
	if errors.As(err, &transportErr) && transportErr.Provider != "" {
		return transportErr.Provider + ": provider credentials rejected"
	}
	return "provider credentials rejected"
}
