package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ConfigurationError is returned for unknown or unconfigured providers and
// missing credentials. It is fatal and never retried.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: provider %q: %s", e.Provider, e.Reason)
}

// UpstreamProtocolError is malformed or unexpected data from a provider.
type UpstreamProtocolError struct {
	Provider string
	Data     string
	Err      error
}

func (e *UpstreamProtocolError) Error() string {
	return fmt.Sprintf("%s: malformed upstream data: %v", e.Provider, e.Err)
}

func (e *UpstreamProtocolError) Unwrap() error {
	return e.Err
}

// TransportError is a network failure reaching the provider, or a non-success
// HTTP status returned by it.
type TransportError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: upstream returned status %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: upstream returned status %d", e.Provider, e.StatusCode)
	default:
		return fmt.Sprintf("%s: transport error: %v", e.Provider, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError is an expired or invalid credential.
type AuthError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Provider == "" {
		return "authentication failed: " + msg
	}
	return fmt.Sprintf("%s: authentication failed: %s", e.Provider, msg)
}

// authPatterns are message fragments that identify credential failures when
// only an error string is available (e.g. an in-band error Chunk).
var authPatterns = []string{
	"unauthorized",
	"authentication failed",
	"invalid api key",
	"invalid_api_key",
	"invalid x-api-key",
	"token expired",
	"status 401",
	"status 403",
}

// IsAuth reports whether err is an authentication failure: an AuthError, a
// TransportError carrying 401/403, or an error message matching a known pattern.
func IsAuth(err error) bool {
	if err == nil {
		return false
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		if transportErr.StatusCode == http.StatusUnauthorized || transportErr.StatusCode == http.StatusForbidden {
			return true
		}
	}

	return IsAuthMessage(err.Error())
}

// IsAuthMessage reports whether msg matches a known authentication failure pattern.
func IsAuthMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, pattern := range authPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
