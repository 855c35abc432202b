package provider_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/logger"
)

var _ = Describe("Registry", func() {
	var (
		anthropic *fakeAdapter
		openai    *fakeAdapter
		registry  *provider.Registry
	)

	BeforeEach(func() {
		anthropic = &fakeAdapter{
			name:   provider.Anthropic,
			models: []string{"claude-sonnet-4-20250514"},
			health: llm.Health{Status: llm.HealthOK, Models: []string{"claude-sonnet-4-20250514"}},
		}
		openai = &fakeAdapter{
			name:   provider.OpenAI,
			models: []string{"gpt-4o", "gpt-4o-mini"},
			health: llm.Health{Status: llm.HealthOK, Models: []string{"gpt-4o", "gpt-4o-mini"}},
		}

		var err error
		registry, err = provider.NewRegistry(provider.OpenAI, logger.Nop(), anthropic, openai)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewRegistry", func() {
		It("rejects an unregistered default", func() {
			_, err := provider.NewRegistry(provider.Azure, logger.Nop(), anthropic)
			Expect(err).To(HaveOccurred())
			Expect(provider.IsConfiguration(err)).To(BeTrue())
		})

		It("rejects an empty adapter set", func() {
			_, err := provider.NewRegistry(provider.OpenAI, logger.Nop())
			Expect(provider.IsConfiguration(err)).To(BeTrue())
		})

		It("rejects duplicate adapters", func() {
			_, err := provider.NewRegistry(provider.OpenAI, logger.Nop(), openai, openai)
			Expect(provider.IsConfiguration(err)).To(BeTrue())
		})
	})

	Describe("Resolve", func() {
		It("prefers the explicit provider over the model", func() {
			a, err := registry.Resolve(&llm.ChatRequest{Provider: provider.Anthropic, Model: "gpt-4o"})
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Name()).To(Equal(provider.Anthropic))
		})

		It("matches by supported model", func() {
			a, err := registry.Resolve(&llm.ChatRequest{Model: "claude-sonnet-4-20250514"})
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Name()).To(Equal(provider.Anthropic))
		})

		It("falls back to the default when neither is set", func() {
			a, err := registry.Resolve(&llm.ChatRequest{})
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Name()).To(Equal(provider.OpenAI))
		})

		It("falls back to the default for an unknown model", func() {
			a, err := registry.Resolve(&llm.ChatRequest{Model: "not-a-model"})
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Name()).To(Equal(provider.OpenAI))
		})

		It("fails with a ConfigurationError naming an unknown provider", func() {
			_, err := registry.Resolve(&llm.ChatRequest{Provider: "foo"})
			Expect(err).To(HaveOccurred())

			var cfgErr *provider.ConfigurationError
			Expect(err).To(BeAssignableToTypeOf(cfgErr))
			Expect(err.Error()).To(ContainSubstring(`"foo"`))
			Expect(anthropic.streams + openai.streams).To(BeZero())
		})
	})

	Describe("ListModels", func() {
		It("returns models keyed by provider", func() {
			models := registry.ListModels()
			Expect(models).To(HaveLen(2))
			Expect(models[provider.OpenAI]).To(ConsistOf("gpt-4o", "gpt-4o-mini"))
			Expect(models[provider.Anthropic]).To(ConsistOf("claude-sonnet-4-20250514"))
		})

		It("returns copies", func() {
			models := registry.ListModels()
			models[provider.OpenAI][0] = "mutated"
			Expect(registry.ListModels()[provider.OpenAI][0]).To(Equal("gpt-4o"))
		})
	})

	Describe("HealthAll", func() {
		It("reports every provider", func() {
			health := registry.HealthAll(context.Background())
			Expect(health).To(HaveKey(provider.OpenAI))
			Expect(health).To(HaveKey(provider.Anthropic))
			Expect(health[provider.OpenAI].Status).To(Equal(llm.HealthOK))
		})

		It("isolates a panicking health check", func() {
			anthropic.panics = true

			health := registry.HealthAll(context.Background())
			Expect(health[provider.Anthropic].Status).To(Equal(llm.HealthError))
			Expect(health[provider.Anthropic].Error).To(ContainSubstring("boom"))
			Expect(health[provider.OpenAI].Status).To(Equal(llm.HealthOK))
		})
	})

	It("lists providers in registration order", func() {
		Expect(registry.Providers()).To(Equal([]string{provider.Anthropic, provider.OpenAI}))
		Expect(registry.Default()).To(Equal(provider.OpenAI))
	})
})
