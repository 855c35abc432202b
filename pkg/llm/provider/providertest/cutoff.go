// Package providertest holds HTTP helpers shared by the adapter tests.
package providertest

import (
	"fmt"
	"net/http"
)

// CutOff answers 200 with a chunked body holding payload and then closes the
// connection without the terminating zero-length chunk, the way a dropped
// upstream socket looks to the client.
func CutOff(w http.ResponseWriter, contentType, payload string) {
	conn, buf, err := http.NewResponseController(w).Hijack()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer conn.Close()

	fmt.Fprintf(buf, "HTTP/1.1 200 OK\r\nContent-Type: %s\r\nTransfer-Encoding: chunked\r\n\r\n", contentType)
	fmt.Fprintf(buf, "%x\r\n%s\r\n", len(payload), payload)
	_ = buf.Flush()
}
