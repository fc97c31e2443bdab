// Package provider holds the error taxonomy and HTTP client defaults shared
// by the weather, calendar and transit adapters.
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds every outbound provider call. There is no retry
// policy: a failed call is terminal for the current refresh cycle.
const DefaultTimeout = 15 * time.Second

// NewHTTPClient returns the client used for all provider calls.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// ConfigError reports a missing required credential or identifier. It is
// raised before any network call and is not recoverable within a cycle.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s is not set", e.Field)
}

// ProviderError reports a non-success HTTP status or an unusable payload
// from an upstream provider. The orchestrator recovers from it by omitting
// the affected dashboard section for the cycle.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s provider error: status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsProvider reports whether err is (or wraps) a ProviderError.
func IsProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
