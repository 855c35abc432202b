package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/chatgate/pkg/eventstream"
	"github.com/papercomputeco/chatgate/pkg/storage"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		w     *fakeWriter
		p     *Publisher
		event *eventstream.TurnCompletedEvent
	)

	BeforeEach(func() {
		w = &fakeWriter{}
		p = newPublisher(w, "turns")
		event = eventstream.NewTurnCompletedEvent(&storage.Turn{
			ID:        "turn-9",
			Provider:  "anthropic",
			Content:   "hi",
			CreatedAt: time.Now(),
		})
	})

	It("requires brokers", func() {
		_, err := NewPublisher(Config{})
		Expect(err).To(HaveOccurred())
	})

	It("defaults the topic", func() {
		pub, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(pub.Topic()).To(Equal(DefaultTopic))
	})

	It("writes one JSON message keyed by turn id", func() {
		Expect(p.PublishTurn(context.Background(), event)).To(Succeed())

		Expect(w.msgs).To(HaveLen(1))
		Expect(string(w.msgs[0].Key)).To(Equal("turn-9"))

		var decoded eventstream.TurnCompletedEvent
		Expect(json.Unmarshal(w.msgs[0].Value, &decoded)).To(Succeed())
		Expect(decoded.EventType).To(Equal(eventstream.EventTypeTurnCompleted))
		Expect(decoded.Source.Provider).To(Equal("anthropic"))

		Expect(w.msgs[0].Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeTurnCompleted)}))
	})

	It("rejects nil events", func() {
		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
	})

	It("does not write events that fail validation", func() {
		event.Turn.ID = ""
		Expect(p.PublishTurn(context.Background(), event)).To(MatchError(eventstream.ErrMissingTurnID))
		Expect(w.msgs).To(BeEmpty())
	})

	It("wraps writer failures", func() {
		w.err = errors.New("leader not available")
		err := p.PublishTurn(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("leader not available")))
		Expect(err).To(MatchError(ContainSubstring("turn-9")))
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})
})
