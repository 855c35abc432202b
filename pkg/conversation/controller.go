package conversation

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/logger"
	"github.com/papercomputeco/chatgate/pkg/streamclient"
)

var (
	// ErrBusy is returned by Send while a turn is in flight.
	ErrBusy = errors.New("a response is still streaming; cancel it first")

	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// Streamer opens one chat stream. *streamclient.Client implements it.
type Streamer interface {
	Stream(ctx context.Context, req *llm.ChatRequest, h streamclient.Handler) error
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithObserver registers fn to receive every new State. fn runs while the
// controller is locked and must not call back into it.
func WithObserver(fn func(State)) ControllerOption {
	return func(c *Controller) {
		c.observer = fn
	}
}

// WithSignOut registers the handler for the SignOut effect.
func WithSignOut(fn func()) ControllerOption {
	return func(c *Controller) {
		c.signOut = fn
	}
}

// WithTarget sets the model and provider sent with every request.
func WithTarget(model, providerID string) ControllerOption {
	return func(c *Controller) {
		c.model = model
		c.provider = providerID
	}
}

// WithHistory seeds the conversation with msgs, e.g. a resumed transcript.
func WithHistory(msgs []llm.Message) ControllerOption {
	return func(c *Controller) {
		c.state.Messages = slices.Clone(msgs)
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = l
	}
}

// Controller drives Reduce with a stream client.
type Controller struct {
	client   Streamer
	observer func(State)
	signOut  func()
	model    string
	provider string
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewController creates an idle Controller.
func NewController(client Streamer, opts ...ControllerOption) *Controller {
	c := &Controller{
		client:  client,
		logger:  logger.Nop(),
		state:   State{Status: Idle},
		cancels: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Messages = slices.Clone(s.Messages)
	return s
}

// Send starts a turn. The stream runs in the background under ctx; use Wait
// to block until it ends.
func (c *Controller) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Busy() {
		return ErrBusy
	}

	next, effects := Reduce(c.state, Send{
		Text:      text,
		SessionID: uuid.NewString(),
		At:        time.Now(),
		Model:     c.model,
		Provider:  c.provider,
	})
	if len(effects) == 0 {
		return ErrEmptyMessage
	}

	c.apply(ctx, next, effects)
	return nil
}

// Cancel aborts the in-flight turn. It is a no-op when nothing is streaming.
func (c *Controller) Cancel() {
	c.dispatch(Cancel{})
}

// Wait blocks until every started stream has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) dispatch(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, effects := Reduce(c.state, ev)
	c.apply(context.Background(), next, effects)
}

// apply must be called with c.mu held.
func (c *Controller) apply(ctx context.Context, next State, effects []Effect) {
	c.state = next

	for _, eff := range effects {
		switch eff := eff.(type) {
		case StartStream:
			streamCtx, cancel := context.WithCancel(ctx)
			c.cancels[eff.SessionID] = cancel
			c.wg.Go(func() {
				c.run(streamCtx, eff)
			})
		case AbortStream:
			if cancel, ok := c.cancels[eff.SessionID]; ok {
				cancel()
				delete(c.cancels, eff.SessionID)
			}
		case SignOut:
			c.logger.Warn("authentication failed, signing out")
			if c.signOut != nil {
				c.signOut()
			}
		}
	}

	if c.observer != nil {
		c.observer(next)
	}
}

func (c *Controller) run(ctx context.Context, start StartStream) {
	session := start.SessionID
	handler := streamclient.HandlerFuncs{
		Chunk: func(chunk llm.Chunk) {
			c.dispatch(ChunkReceived{SessionID: session, Chunk: chunk})
		},
		Complete: func() {
			c.dispatch(Completed{SessionID: session, At: time.Now()})
		},
		Error: func(err error) {
			c.dispatch(Errored{SessionID: session, Err: err})
		},
	}

	err := c.client.Stream(ctx, start.Request, handler)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("stream ended with error", "session_id", session, "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cancel, ok := c.cancels[session]; ok {
		cancel()
		delete(c.cancels, session)
	}

	// A stream whose parent context ended returns without any callback.
	if err != nil && c.state.Busy() && c.state.SessionID == session {
		var ev Event = Cancel{}
		if !errors.Is(err, context.Canceled) {
			ev = Errored{SessionID: session, Err: err}
		}
		next, effects := Reduce(c.state, ev)
		c.apply(context.Background(), next, effects)
	}
}
