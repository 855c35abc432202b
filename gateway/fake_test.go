package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatgate/pkg/chat"
	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/logger"
	"github.com/papercomputeco/chatgate/pkg/sse"
	"github.com/papercomputeco/chatgate/pkg/storage/inmemory"
)

// scriptedAdapter streams a fixed list of deltas, optionally failing after
// them instead of finishing.
type scriptedAdapter struct {
	name   string
	models []string
	deltas []string
	fail   error
	pause  time.Duration

	// started, when set, is closed as Stream begins.
	started chan struct{}
}

func (a *scriptedAdapter) Name() string              { return a.name }
func (a *scriptedAdapter) SupportedModels() []string { return a.models }

func (a *scriptedAdapter) Stream(ctx context.Context, _ *llm.ChatRequest, emit provider.EmitFunc) (*llm.Completion, error) {
	if a.started != nil {
		close(a.started)
	}

	acc := provider.NewAccumulator(emit)
	acc.SetID("turn-" + a.name)
	acc.Model = a.models[0]

	for _, d := range a.deltas {
		if a.pause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.pause):
			}
		}
		if err := acc.Append(d); err != nil {
			return nil, err
		}
	}
	if a.fail != nil {
		return nil, a.fail
	}
	acc.FinishReason = "stop"
	return acc.Finish()
}

func (a *scriptedAdapter) HealthCheck(context.Context) llm.Health {
	return llm.Health{Status: llm.HealthOK, Models: a.models}
}

func newTestServer(config Config, adapters ...provider.Adapter) (*Server, *inmemory.Driver) {
	registry, err := provider.NewRegistry(adapters[0].Name(), logger.Nop(), adapters...)
	Expect(err).NotTo(HaveOccurred())

	driver := inmemory.NewDriver()
	s, err := New(config, chat.New(registry, logger.Nop()), driver, logger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return s, driver
}

func decodeChunks(body []byte) []llm.Chunk {
	dec := sse.NewDecoder()
	payloads := append(dec.Feed(body), dec.Flush()...)

	chunks := make([]llm.Chunk, 0, len(payloads))
	for _, p := range payloads {
		var c llm.Chunk
		Expect(json.Unmarshal([]byte(p), &c)).To(Succeed())
		chunks = append(chunks, c)
	}
	return chunks
}

var errUpstream = errors.New("upstream exploded")
