// Package storagetest holds the behaviour specs every storage.Driver must pass.
package storagetest

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/storage"
)

// NewTurn builds a turn for tests.
func NewTurn(id, providerName string, createdAt time.Time) *storage.Turn {
	return &storage.Turn{
		ID:       id,
		Provider: providerName,
		Model:    "test-model",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "hi " + id},
		},
		Content:      "hello from " + id,
		FinishReason: "stop",
		Usage:        &llm.Usage{PromptTokens: 3, CompletionTokens: 5, TotalTokens: 8},
		Duration:     1500 * time.Millisecond,
		CreatedAt:    createdAt.Truncate(time.Millisecond),
	}
}

// DriverSpecs registers the shared Driver specs. newDriver is called before
// each spec; the returned driver is closed after it.
func DriverSpecs(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
		base   time.Time
	)

	BeforeEach(func() {
		driver = nil
		ctx = context.Background()
		base = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Put", func() {
		It("inserts a new turn", func() {
			inserted, err := driver.Put(ctx, NewTurn("t1", "openai", base))
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeTrue())
		})

		It("is idempotent by id", func() {
			_, err := driver.Put(ctx, NewTurn("t1", "openai", base))
			Expect(err).NotTo(HaveOccurred())

			inserted, err := driver.Put(ctx, NewTurn("t1", "anthropic", base))
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeFalse())

			got, err := driver.Get(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Provider).To(Equal("openai"))
		})

		It("rejects nil and id-less turns", func() {
			_, err := driver.Put(ctx, nil)
			Expect(err).To(HaveOccurred())

			_, err = driver.Put(ctx, &storage.Turn{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Get", func() {
		It("round-trips every field", func() {
			want := NewTurn("t1", "anthropic", base)
			_, err := driver.Put(ctx, want)
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(want.ID))
			Expect(got.Provider).To(Equal(want.Provider))
			Expect(got.Model).To(Equal(want.Model))
			Expect(got.Messages).To(HaveLen(1))
			Expect(got.Messages[0].Content).To(Equal("hi t1"))
			Expect(got.Content).To(Equal(want.Content))
			Expect(got.FinishReason).To(Equal("stop"))
			Expect(got.Usage).To(Equal(want.Usage))
			Expect(got.Duration).To(Equal(want.Duration))
			Expect(got.CreatedAt.Equal(want.CreatedAt)).To(BeTrue())
		})

		It("returns NotFoundError for unknown ids", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(storage.NotFoundError{ID: "missing"}))
			Expect(err).To(MatchError(storage.ErrNotFound))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for i := range 5 {
				providerName := "openai"
				if i%2 == 1 {
					providerName = "anthropic"
				}
				_, err := driver.Put(ctx, NewTurn(fmt.Sprintf("t%d", i), providerName, base.Add(time.Duration(i)*time.Minute)))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("returns newest first", func() {
			turns, err := driver.List(ctx, storage.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(5))
			Expect(turns[0].ID).To(Equal("t4"))
			Expect(turns[4].ID).To(Equal("t0"))
		})

		It("filters by provider", func() {
			turns, err := driver.List(ctx, storage.Query{Provider: "anthropic"})
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			for _, t := range turns {
				Expect(t.Provider).To(Equal("anthropic"))
			}
		})

		It("applies the limit", func() {
			turns, err := driver.List(ctx, storage.Query{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].ID).To(Equal("t4"))
		})
	})
}
