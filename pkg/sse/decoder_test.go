package sse

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Decoder", func() {
	var d *Decoder

	BeforeEach(func() {
		d = NewDecoder()
	})

	It("returns payloads of complete data lines", func() {
		payloads := d.Feed([]byte("data: {\"a\":1}\n\ndata: {\"b\":2}\n\n"))
		Expect(payloads).To(Equal([]string{`{"a":1}`, `{"b":2}`}))
		Expect(d.Buffered()).To(BeZero())
	})

	It("carries an incomplete line over to the next read", func() {
		Expect(d.Feed([]byte("data: {\"ty"))).To(BeEmpty())
		Expect(d.Buffered()).To(BeNumerically(">", 0))

		payloads := d.Feed([]byte("pe\":\"text\"}\n\n"))
		Expect(payloads).To(Equal([]string{`{"type":"text"}`}))
	})

	It("reassembles a multi-byte character split across reads", func() {
		frame := []byte("data: {\"content\":\"héllo\"}\n\n")
		// split inside the two-byte é
		split := 0
		for i, b := range frame {
			if b == 0xc3 {
				split = i + 1
				break
			}
		}
		Expect(split).To(BeNumerically(">", 0))

		Expect(d.Feed(frame[:split])).To(BeEmpty())
		Expect(d.Feed(frame[split:])).To(Equal([]string{`{"content":"héllo"}`}))
	})

	It("skips empty lines, comments and other fields", func() {
		payloads := d.Feed([]byte(": keepalive\n\nevent: x\nid: 1\ndata: ok\n\n"))
		Expect(payloads).To(Equal([]string{"ok"}))
	})

	It("strips carriage returns", func() {
		Expect(d.Feed([]byte("data: ok\r\n\r\n"))).To(Equal([]string{"ok"}))
	})

	It("flushes an unterminated trailing line", func() {
		Expect(d.Feed([]byte("data: tail"))).To(BeEmpty())
		Expect(d.Flush()).To(Equal([]string{"tail"}))
		Expect(d.Flush()).To(BeEmpty())
	})
})
