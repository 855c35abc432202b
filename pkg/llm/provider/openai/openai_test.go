package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/llm/provider/openai"
	"github.com/papercomputeco/chatgate/pkg/llm/provider/providertest"
	"github.com/papercomputeco/chatgate/pkg/logger"
)

func data(payload string) string {
	return "data: " + payload + "\n\n"
}

var _ = Describe("OpenAI Adapter", func() {
	var (
		server   *httptest.Server
		handler  http.HandlerFunc
		requests atomic.Int32
		lastBody map[string]any
		lastAuth string
		adapter  *openai.Adapter
		chunks   []llm.Chunk
		key      string
	)

	emit := func(c llm.Chunk) error {
		chunks = append(chunks, c)
		return nil
	}

	request := func() *llm.ChatRequest {
		maxTokens := 64
		return &llm.ChatRequest{
			Model:     "gpt-4o-mini",
			MaxTokens: &maxTokens,
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: "be brief"},
				{Role: llm.RoleAssistant, Content: ""},
				{Role: llm.RoleUser, Content: "hi"},
			},
		}
	}

	BeforeEach(func() {
		chunks = nil
		lastBody = nil
		requests.Store(0)
		key = "sk-test"

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			lastAuth = r.Header.Get("Authorization")
			raw, _ := io.ReadAll(r.Body)
			if len(raw) > 0 {
				_ = json.Unmarshal(raw, &lastBody)
			}
			handler(w, r)
		}))

		adapter = openai.New(openai.Config{
			BaseURL: server.URL + "/",
			Key:     func() string { return key },
			Logger:  logger.Nop(),
		})
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Stream", func() {
		It("normalizes chunks up to [DONE]", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w,
					data(`{"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":""},"finish_reason":null}]}`)+
						data(`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"content":"H"},"finish_reason":null}]}`)+
						data(`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"content":"i"},"finish_reason":null}]}`)+
						data(`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)+
						data(`{"id":"chatcmpl-1","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`)+
						data(`[DONE]`))
			}

			completion, err := adapter.Stream(context.Background(), request(), emit)
			Expect(err).NotTo(HaveOccurred())

			Expect(chunks).To(Equal([]llm.Chunk{
				llm.TextChunk("chatcmpl-1", "H", "H"),
				llm.TextChunk("chatcmpl-1", "Hi", "i"),
				llm.DoneChunk("chatcmpl-1", "Hi"),
			}))
			Expect(completion.FinishReason).To(Equal("stop"))
			Expect(completion.Model).To(Equal("gpt-4o-mini"))
			Expect(completion.Usage).To(Equal(&llm.Usage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}))
		})

		It("sends the Chat Completions shape", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/chat/completions" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				_, _ = io.WriteString(w, data(`[DONE]`))
			}

			_, err := adapter.Stream(context.Background(), request(), emit)
			Expect(err).NotTo(HaveOccurred())

			Expect(lastAuth).To(Equal("Bearer sk-test"))
			Expect(lastBody["model"]).To(Equal("gpt-4o-mini"))
			Expect(lastBody["max_tokens"]).To(BeNumerically("==", 64))
			Expect(lastBody["stream"]).To(BeTrue())
			Expect(lastBody["stream_options"]).To(Equal(map[string]any{"include_usage": true}))

			msgs, ok := lastBody["messages"].([]any)
			Expect(ok).To(BeTrue())
			Expect(msgs).To(HaveLen(2))
		})

		It("synthesizes done on ungraceful close", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, data(`{"id":"c","choices":[{"delta":{"content":"part"}}]}`))
			}

			completion, err := adapter.Stream(context.Background(), request(), emit)
			Expect(err).NotTo(HaveOccurred())
			Expect(completion.Content).To(Equal("part"))
			Expect(chunks[len(chunks)-1]).To(Equal(llm.DoneChunk("c", "part")))
		})

		It("synthesizes done when the upstream drops the connection mid-body", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				providertest.CutOff(w, "text/event-stream", data(`{"id":"c","choices":[{"delta":{"content":"part"}}]}`))
			}

			completion, err := adapter.Stream(context.Background(), request(), emit)
			Expect(err).NotTo(HaveOccurred())
			Expect(completion.Content).To(Equal("part"))
			Expect(chunks[len(chunks)-1]).To(Equal(llm.DoneChunk("c", "part")))
		})

		It("skips a malformed chunk", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w,
					data(`{"id":"c","choices":[{"delta":{"content":"a"}}]}`)+
						data(`<html>bad gateway</html>`)+
						data(`{"id":"c","choices":[{"delta":{"content":"b"}}]}`)+
						data(`[DONE]`))
			}

			completion, err := adapter.Stream(context.Background(), request(), emit)
			Expect(err).NotTo(HaveOccurred())
			Expect(completion.Content).To(Equal("ab"))
		})

		It("surfaces an in-band error object", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, data(`{"error":{"message":"The server had an error","type":"server_error"}}`))
			}

			_, err := adapter.Stream(context.Background(), request(), emit)
			Expect(err).To(MatchError(ContainSubstring("The server had an error")))
		})

		It("classifies 401 as an AuthError", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
			}

			_, err := adapter.Stream(context.Background(), request(), emit)
			Expect(provider.IsAuth(err)).To(BeTrue())
		})

		It("classifies 500 as a TransportError", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}

			_, err := adapter.Stream(context.Background(), request(), emit)
			var transportErr *provider.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue())
			Expect(transportErr.StatusCode).To(Equal(http.StatusInternalServerError))
		})

		It("returns context.Canceled when cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			release := make(chan struct{})
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, data(`{"id":"c","choices":[{"delta":{"content":"a"}}]}`))
				w.(http.Flusher).Flush()
				<-release
			}
			defer close(release)

			_, err := adapter.Stream(ctx, request(), func(c llm.Chunk) error {
				cancel()
				return nil
			})
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})

		It("fails without a key and never dials", func() {
			key = ""
			_, err := adapter.Stream(context.Background(), request(), emit)
			Expect(provider.IsConfiguration(err)).To(BeTrue())
			Expect(requests.Load()).To(BeZero())
		})
	})

	Describe("HealthCheck", func() {
		It("reports error immediately when the key is missing", func() {
			key = ""
			Expect(adapter.HealthCheck(context.Background()).Status).To(Equal(llm.HealthError))
			Expect(requests.Load()).To(BeZero())
		})

		It("reports ok with the supported models", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"object":"list","data":[]}`)
			}

			health := adapter.HealthCheck(context.Background())
			Expect(health.Status).To(Equal(llm.HealthOK))
			Expect(health.Models).To(Equal(openai.DefaultModels))
		})
	})
})
