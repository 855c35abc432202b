package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatgate/pkg/eventstream"
	"github.com/papercomputeco/chatgate/pkg/eventstream/nop"
	"github.com/papercomputeco/chatgate/pkg/storage"
)

var _ = Describe("Publisher", func() {
	var (
		ctx context.Context
		p   *nop.Publisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		p = nop.NewPublisher()
	})

	It("counts accepted turns", func() {
		for _, id := range []string{"a", "b"} {
			Expect(p.PublishTurn(ctx, eventstream.NewTurnCompletedEvent(&storage.Turn{ID: id}))).To(Succeed())
		}
		Expect(p.Published()).To(BeEquivalentTo(2))
	})

	It("rejects events that fail validation without counting them", func() {
		Expect(p.PublishTurn(ctx, nil)).To(MatchError(eventstream.ErrNilTurnEvent))
		Expect(p.PublishTurn(ctx, &eventstream.TurnCompletedEvent{SchemaVersion: eventstream.SchemaVersionV1})).
			To(MatchError(eventstream.ErrMissingTurnID))
		Expect(p.Published()).To(BeZero())
	})

	It("refuses to publish once closed", func() {
		Expect(p.Close()).To(Succeed())
		Expect(p.Close()).To(Succeed())
		err := p.PublishTurn(ctx, eventstream.NewTurnCompletedEvent(&storage.Turn{ID: "late"}))
		Expect(err).To(MatchError(eventstream.ErrPublisherClosed))
	})
})
