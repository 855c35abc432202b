package modelscmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatgate/gateway"
	"github.com/papercomputeco/chatgate/pkg/config"
	"github.com/papercomputeco/chatgate/pkg/credentials"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
)

var _ = Describe("models command", func() {
	var (
		tmpDir string
		server *httptest.Server
		auth   string
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		GinkgoT().Setenv(credentials.TokenEnvVar, "")

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != gateway.ModelsPath {
				http.NotFound(w, r)
				return
			}
			if auth != "" && r.Header.Get("Authorization") != "Bearer "+auth {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(gateway.ModelsResponse{
				Default: "openai",
				Providers: map[string][]string{
					"openai":    {"gpt-4o"},
					"anthropic": {"claude-sonnet-4-20250514"},
				},
			})
		}))
		DeferCleanup(server.Close)
		auth = ""
	})

	newCommander := func() *modelsCommander {
		cfg := config.NewDefaultConfig()
		cfg.Client.Target = server.URL
		return &modelsCommander{configDir: tmpDir, cfg: cfg, client: server.Client()}
	}

	It("lists providers in order and marks the default", func() {
		out := &bytes.Buffer{}
		Expect(newCommander().run(context.Background(), out)).To(Succeed())

		text := ansi.Strip(out.String())
		Expect(text).To(ContainSubstring("openai (default)"))
		Expect(text).To(ContainSubstring("    gpt-4o"))
		Expect(text).To(MatchRegexp(`(?s)anthropic.*openai`))
	})

	It("prints raw JSON", func() {
		out := &bytes.Buffer{}
		cmder := newCommander()
		cmder.jsonOut = true
		Expect(cmder.run(context.Background(), out)).To(Succeed())

		var got gateway.ModelsResponse
		Expect(json.Unmarshal(out.Bytes(), &got)).To(Succeed())
		Expect(got.Default).To(Equal("openai"))
	})

	It("sends the stored session token", func() {
		auth = "session-token"
		mgr, err := credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.SetToken("session-token")).To(Succeed())

		Expect(newCommander().run(context.Background(), &bytes.Buffer{})).To(Succeed())
	})

	It("reports a rejected token as an auth error", func() {
		auth = "required"
		err := newCommander().run(context.Background(), &bytes.Buffer{})
		Expect(provider.IsAuth(err)).To(BeTrue())
	})
})
