package domain

import (
	"errors"
	"fmt"
)

// ConfigError marks malformed source or keyword configuration. Fatal at
// startup: the run never begins.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

// NewConfigError formats a startup configuration failure.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// StoreError marks the persistence layer as unusable. Fatal for the run:
// without the store no admitted item can be durably deduplicated.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// FetchError classifies an upstream retrieval failure. Transient failures
// (timeouts, 5xx) were already retried; permanent ones (4xx, malformed
// payload) fail fast. Either way the failure stays scoped to its source.
type FetchError struct {
	SourceID  string
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.SourceID, kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransientFetch reports whether err is a fetch failure that was retryable.
func IsTransientFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Transient
}
