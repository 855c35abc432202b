package servecmder

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatgate/pkg/config"
	"github.com/papercomputeco/chatgate/pkg/credentials"
	"github.com/papercomputeco/chatgate/pkg/eventstream/kafka"
	"github.com/papercomputeco/chatgate/pkg/eventstream/nop"
	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/logger"
	"github.com/papercomputeco/chatgate/pkg/storage/inmemory"
	"github.com/papercomputeco/chatgate/pkg/storage/sqlite"
)

var _ = Describe("serve wiring", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
		store  *credentials.Store
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		store, err = credentials.NewStore(mgr, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	names := func(adapters []provider.Adapter) []string {
		out := make([]string, 0, len(adapters))
		for _, a := range adapters {
			out = append(out, a.Name())
		}
		return out
	}

	Describe("buildAdapters", func() {
		It("skips azure without an endpoint", func() {
			adapters := buildAdapters(config.NewDefaultConfig().Providers, store, logger.Nop())
			Expect(names(adapters)).To(ConsistOf(provider.OpenAI, provider.Anthropic, provider.Ollama))
		})

		It("adds azure when an endpoint is configured", func() {
			cfg := config.NewDefaultConfig().Providers
			cfg.Azure.BaseURL = "https://res.openai.azure.com"
			cfg.Azure.Models = []string{"my-deploy"}

			adapters := buildAdapters(cfg, store, logger.Nop())
			Expect(names(adapters)).To(ContainElement(provider.Azure))

			registry, err := provider.NewRegistry(provider.OpenAI, logger.Nop(), adapters...)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.ResolveByModel("my-deploy").Name()).To(Equal(provider.Azure))
		})
	})

	Describe("refresher", func() {
		It("rewrites the provider auth header from reloaded credentials", func() {
			Expect(mgr.SetKey(provider.Anthropic, "sk-ant-new")).To(Succeed())

			req, err := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(refresher(store, provider.Anthropic)(context.Background(), req)).To(Succeed())
			Expect(req.Header.Get("x-api-key")).To(Equal("sk-ant-new"))

			Expect(mgr.SetKey(provider.OpenAI, "sk-openai")).To(Succeed())
			Expect(refresher(store, provider.OpenAI)(context.Background(), req)).To(Succeed())
			Expect(req.Header.Get("Authorization")).To(Equal("Bearer sk-openai"))
		})

		It("fails when no key is available", func() {
			GinkgoT().Setenv("AZURE_OPENAI_API_KEY", "")

			req, err := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(refresher(store, provider.Azure)(context.Background(), req)).NotTo(Succeed())
		})
	})

	Describe("newStorageDriver", func() {
		It("defaults to in-memory", func() {
			driver, err := newStorageDriver(context.Background(), config.StorageConfig{}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).To(BeAssignableToTypeOf(&inmemory.Driver{}))
		})

		It("opens sqlite when a path is set", func() {
			path := filepath.Join(tmpDir, "turns.db")
			driver, err := newStorageDriver(context.Background(), config.StorageConfig{SQLitePath: path}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			defer driver.Close()
			Expect(driver).To(BeAssignableToTypeOf(&sqlite.SQLiteDriver{}))
		})
	})

	Describe("newPublisher", func() {
		It("is a no-op without brokers", func() {
			p, err := newPublisher(config.EventsConfig{}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
		})

		It("uses kafka when brokers are set", func() {
			p, err := newPublisher(config.EventsConfig{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "turns"}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			defer p.Close()
			Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		})
	})
})

var _ = Describe("probeProviders", func() {
	It("reports every provider and marks unhealthy ones", func() {
		GinkgoT().Setenv(credentials.EnvVarForProvider(provider.OpenAI), "")
		GinkgoT().Setenv(credentials.EnvVarForProvider(provider.Anthropic), "")

		mgr, err := credentials.NewManager(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		store, err := credentials.NewStore(mgr, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		var keyed []provider.Adapter
		for _, a := range buildAdapters(config.NewDefaultConfig().Providers, store, logger.Nop()) {
			if a.Name() == provider.OpenAI || a.Name() == provider.Anthropic {
				keyed = append(keyed, a)
			}
		}
		registry, err := provider.NewRegistry(provider.OpenAI, logger.Nop(), keyed...)
		Expect(err).NotTo(HaveOccurred())

		out := &bytes.Buffer{}
		results := probeProviders(context.Background(), out, registry)

		Expect(results).To(HaveLen(2))
		Expect(results[provider.OpenAI].Status).To(Equal(llm.HealthError))

		text := ansi.Strip(out.String())
		Expect(text).To(ContainSubstring("Probing providers"))
		Expect(text).To(ContainSubstring("openai (default)"))
		Expect(text).To(ContainSubstring("anthropic"))
		Expect(text).To(ContainSubstring("✗"))
	})
})
