package provider

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/papercomputeco/chatgate/pkg/llm"
)

// Registry holds the configured adapters and resolves one per request.
// It is built once at startup and then only read, so it is shared across
// concurrent requests without locking.
type Registry struct {
	adapters  map[string]Adapter
	order     []string
	defaultID string
	logger    *slog.Logger
}

// NewRegistry creates a Registry over adapters. defaultID names the adapter
// used when a request selects neither a provider nor a known model; it must
// be one of the given adapters.
func NewRegistry(defaultID string, logger *slog.Logger, adapters ...Adapter) (*Registry, error) {
	if len(adapters) == 0 {
		return nil, &ConfigurationError{Reason: "at least one provider adapter is required"}
	}

	r := &Registry{
		adapters:  make(map[string]Adapter, len(adapters)),
		defaultID: defaultID,
		logger:    logger,
	}

	for _, a := range adapters {
		name := a.Name()
		if _, exists := r.adapters[name]; exists {
			return nil, &ConfigurationError{Provider: name, Reason: "registered more than once"}
		}
		r.adapters[name] = a
		r.order = append(r.order, name)
	}

	if _, ok := r.adapters[defaultID]; !ok {
		return nil, &ConfigurationError{
			Provider: defaultID,
			Reason:   fmt.Sprintf("default provider is not registered (registered: %v)", r.order),
		}
	}

	return r, nil
}

// Resolve picks the adapter for req: an explicit provider wins, then the
// first adapter whose supported models include req.Model, then the default.
// An unknown explicit provider is a ConfigurationError. Resolve never
// performs network calls.
func (r *Registry) Resolve(req *llm.ChatRequest) (Adapter, error) {
	if req.Provider != "" {
		a, ok := r.adapters[req.Provider]
		if !ok {
			return nil, &ConfigurationError{
				Provider: req.Provider,
				Reason:   fmt.Sprintf("unknown provider (registered: %v)", r.order),
			}
		}
		return a, nil
	}

	return r.ResolveByModel(req.Model), nil
}

// ResolveByModel returns the first adapter (in registration order) that
// supports model, falling back to the default adapter.
func (r *Registry) ResolveByModel(model string) Adapter {
	if model != "" {
		for _, name := range r.order {
			a := r.adapters[name]
			if slices.Contains(a.SupportedModels(), model) {
				return a
			}
		}

		r.logger.Warn("model not served by any provider, using default",
			"model", model,
			"provider", r.defaultID,
		)
	}

	return r.adapters[r.defaultID]
}

// Get returns the adapter registered under id.
func (r *Registry) Get(id string) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// Default returns the id of the default adapter.
func (r *Registry) Default() string {
	return r.defaultID
}

// Providers returns the registered provider ids in registration order.
func (r *Registry) Providers() []string {
	return slices.Clone(r.order)
}

// ListModels returns the supported models of every adapter keyed by provider id.
func (r *Registry) ListModels() map[string][]string {
	models := make(map[string][]string, len(r.order))
	for _, name := range r.order {
		models[name] = slices.Clone(r.adapters[name].SupportedModels())
	}
	return models
}

// HealthAll checks every adapter concurrently. A panicking check is
// recovered and reported as an error entry for that provider only.
func (r *Registry) HealthAll(ctx context.Context) map[string]llm.Health {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]llm.Health, len(r.order))
	)

	for _, name := range r.order {
		a := r.adapters[name]
		wg.Go(func() {
			h := r.checkOne(ctx, name, a)

			mu.Lock()
			results[name] = h
			mu.Unlock()
		})
	}

	wg.Wait()
	return results
}

func (r *Registry) checkOne(ctx context.Context, name string, a Adapter) (h llm.Health) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("provider health check panicked",
				"provider", name,
				"panic", rec,
			)
			h = llm.Health{
				Status: llm.HealthError,
				Models: a.SupportedModels(),
				Error:  fmt.Sprintf("health check failed: %v", rec),
			}
		}
	}()

	return a.HealthCheck(ctx)
}
