package chatcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatgate/pkg/config"
	"github.com/papercomputeco/chatgate/pkg/dotdir"
	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/sse"
)

var _ = Describe("chat session", func() {
	var (
		tmpDir   string
		gateway  *httptest.Server
		mu       sync.Mutex
		requests []llm.ChatRequest
	)

	recorded := func() []llm.ChatRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]llm.ChatRequest(nil), requests...)
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		requests = nil

		gateway = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req llm.ChatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			mu.Lock()
			requests = append(requests, req)
			mu.Unlock()

			w.Header().Set("Content-Type", "text/event-stream")
			sw := sse.NewWriter(w)
			_ = sw.WriteJSON(llm.TextChunk("t1", "Hi", "Hi"))
			_ = sw.WriteJSON(llm.TextChunk("t1", "Hi there", " there"))
			_ = sw.WriteJSON(llm.DoneChunk("t1", "Hi there"))
		}))
		DeferCleanup(gateway.Close)
	})

	newCommander := func(input string, out *bytes.Buffer) *chatCommander {
		cfg := config.NewDefaultConfig()
		cfg.Client.Target = gateway.URL
		cfg.Client.Model = "gpt-4o"
		return &chatCommander{
			configDir: tmpDir,
			cfg:       cfg,
			in:        strings.NewReader(input),
			out:       out,
		}
	}

	It("streams a reply and saves the transcript", func() {
		out := &bytes.Buffer{}
		Expect(newCommander("hello\n/exit\n", out).run(context.Background())).To(Succeed())

		Expect(ansi.Strip(out.String())).To(ContainSubstring("assistant> Hi there\n"))
		Expect(recorded()).To(HaveLen(1))
		Expect(recorded()[0].Model).To(Equal("gpt-4o"))

		t, err := dotdir.NewManager().LoadTranscript(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Messages).To(HaveLen(2))
		Expect(t.Messages[1].Content).To(Equal("Hi there"))
		Expect(t.Model).To(Equal("gpt-4o"))
	})

	It("resumes from the saved transcript", func() {
		Expect(newCommander("hello\n", &bytes.Buffer{}).run(context.Background())).To(Succeed())

		out := &bytes.Buffer{}
		cmder := newCommander("again\n", out)
		cmder.resume = true
		Expect(cmder.run(context.Background())).To(Succeed())

		Expect(ansi.Strip(out.String())).To(ContainSubstring("Resuming 2 messages"))
		Expect(recorded()).To(HaveLen(2))
		Expect(recorded()[1].Messages).To(HaveLen(3))
		Expect(recorded()[1].Messages[0].Content).To(Equal("hello"))
	})

	It("clears history on /reset", func() {
		out := &bytes.Buffer{}
		Expect(newCommander("hello\n/reset\nagain\n", out).run(context.Background())).To(Succeed())

		Expect(recorded()).To(HaveLen(2))
		Expect(recorded()[1].Messages).To(HaveLen(1))
		Expect(ansi.Strip(out.String())).To(ContainSubstring("history cleared"))
	})
})
