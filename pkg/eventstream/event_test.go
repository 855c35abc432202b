package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatgate/pkg/eventstream"
	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/storage"
)

var _ = Describe("Event", func() {
	var turn *storage.Turn

	BeforeEach(func() {
		turn = &storage.Turn{
			ID:       "turn-1",
			Provider: "openai",
			Model:    "gpt-4.1",
			Messages: []llm.Message{
				llm.NewTextMessage(llm.RoleUser, "hello"),
			},
			Content:      "hi",
			FinishReason: "stop",
			Usage:        &llm.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
			Duration:     2 * time.Second,
			CreatedAt:    time.Unix(1735689600, 0).UTC(),
		}
	})

	It("marshals TurnCompletedEvent with expected top-level keys", func() {
		payload, err := json.Marshal(eventstream.NewTurnCompletedEvent(turn))
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("request_meta"))
		Expect(got).To(HaveKey("turn"))
	})

	It("derives request timing from the stored turn", func() {
		event := eventstream.NewTurnCompletedEvent(turn)

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeTurnCompleted))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.Source.Provider).To(Equal("openai"))
		Expect(event.RequestMeta.DurationMs).To(Equal(int64(2000)))
		Expect(event.RequestMeta.CompletedAt).To(Equal(turn.CreatedAt))
		Expect(event.RequestMeta.StartedAt).To(Equal(turn.CreatedAt.Add(-2 * time.Second)))
		Expect(event.Turn.ID).To(Equal("turn-1"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeTurnCompleted).To(Equal("chatgate.turn.completed"))
	})

	Describe("Validate", func() {
		It("accepts events built from stored turns", func() {
			event := eventstream.NewTurnCompletedEvent(&storage.Turn{ID: "turn-1"})
			Expect(eventstream.Validate(event)).To(Succeed())
		})

		It("rejects nil events", func() {
			Expect(eventstream.Validate(nil)).To(MatchError(eventstream.ErrNilTurnEvent))
		})

		It("rejects unknown schema versions", func() {
			event := eventstream.NewTurnCompletedEvent(&storage.Turn{ID: "turn-1"})
			event.SchemaVersion = 7
			err := eventstream.Validate(event)
			Expect(err).To(MatchError(eventstream.ErrUnsupportedSchema))
			Expect(err).To(MatchError(ContainSubstring("version 7")))
		})

		It("rejects events without a turn id", func() {
			event := eventstream.NewTurnCompletedEvent(&storage.Turn{})
			Expect(eventstream.Validate(event)).To(MatchError(eventstream.ErrMissingTurnID))
		})
	})
})
