package azure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/chatgate/pkg/llm/provider"
)

// classify maps go-openai errors onto the provider error taxonomy.
// Cancellation passes through untouched.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if len(reqErr.Body) > 0 {
			msg = string(reqErr.Body)
		}
		return statusError(reqErr.HTTPStatusCode, msg, err)
	}

	return &provider.TransportError{Provider: provider.Azure, Err: err}
}

// statusError classifies an HTTP or in-band (status 0) failure.
func statusError(status int, msg string, err error) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &provider.AuthError{Provider: provider.Azure, StatusCode: status, Message: msg}
	}
	if status == 0 && provider.IsAuthMessage(msg) {
		return &provider.AuthError{Provider: provider.Azure, Message: msg}
	}
	return &provider.TransportError{Provider: provider.Azure, StatusCode: status, Message: msg, Err: err}
}

// isDecodeError reports a single update whose JSON could not be decoded.
// The stream stays readable after one.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
