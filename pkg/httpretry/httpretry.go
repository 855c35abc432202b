// Package httpretry builds the outbound HTTP client used for non-streaming
// calls: retries with exponential backoff on network errors and 5xx
// responses, and a single credential refresh and replay on 401.
package httpretry

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// RefreshFunc refreshes credentials after a 401 and rewrites the auth
// headers of req, which is a clone of the rejected request.
type RefreshFunc func(ctx context.Context, req *http.Request) error

// Options configures New.
type Options struct {
	// RetryMax is the number of retries after the first attempt.
	RetryMax int

	// RetryWaitMin and RetryWaitMax bound the exponential backoff.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Timeout bounds a single call including retries. Zero means none.
	Timeout time.Duration

	// Refresh is invoked at most once per request on a 401. Nil disables replay.
	Refresh RefreshFunc

	// Transport is the base round tripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	Logger *slog.Logger
}

// DefaultOptions returns the options used by the gateway's health probes.
func DefaultOptions() Options {
	return Options{
		RetryMax:     3,
		RetryWaitMin: 200 * time.Millisecond,
		RetryWaitMax: 3 * time.Second,
		Timeout:      30 * time.Second,
	}
}

// New returns an *http.Client backed by go-retryablehttp.
func New(opts Options) *http.Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if opts.Refresh != nil {
		transport = &refreshTransport{base: transport, refresh: opts.Refresh}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: transport}
	rc.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	rc.CheckRetry = CheckRetry
	rc.Backoff = retryablehttp.DefaultBackoff
	// Hand the final response back to the caller instead of a generic
	// "giving up" error, so status classification still works.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = opts.Logger
	}

	client := rc.StandardClient()
	client.Timeout = opts.Timeout
	return client
}

// CheckRetry retries network errors and 5xx responses but never a 4xx, which
// includes 429: rate limits on liveness probes are reported, not waited out.
func CheckRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil && resp != nil && resp.StatusCode < http.StatusInternalServerError {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// refreshTransport replays a request once after refreshing credentials when
// the first response is 401.
type refreshTransport struct {
	base    http.RoundTripper
	refresh RefreshFunc
}

func (t *refreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil && req.Body != nil && req.Body != http.NoBody {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return resp, nil
		}
		retry.Body = body
	}

	if refreshErr := t.refresh(req.Context(), retry); refreshErr != nil {
		return resp, nil
	}

	_ = resp.Body.Close()
	return t.base.RoundTrip(retry)
}
