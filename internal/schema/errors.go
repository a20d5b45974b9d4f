package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every construction-time failure.
	ErrConfiguration = errors.New("configuration error")
	// ErrRecursionLimitExceeded is matched by *RecursionLimitError.
	ErrRecursionLimitExceeded = errors.New("recursion limit exceeded")
)

// ConfigurationError reports an invalid tool or agent setup.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrConfiguration, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrConfiguration, e.Msg)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// DuplicateToolError is returned when two tools share a name.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("%s: duplicate tool name %q", ErrConfiguration, e.Name)
}

func (e *DuplicateToolError) Is(target error) bool { return target == ErrConfiguration }

// ProviderError is a failure of the completion boundary.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// RateLimited reports whether the provider rejected the call for rate limiting.
func (e *ProviderError) RateLimited() bool { return e.StatusCode == 429 }

// ArgumentError means the arguments of a tool request do not fit the tool's
// declared parameters.
type ArgumentError struct {
	Tool   string
	Param  string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("invalid arguments for tool %q: parameter %q: %s", e.Tool, e.Param, e.Reason)
	}
	return fmt.Sprintf("invalid arguments for tool %q: %s", e.Tool, e.Reason)
}

// ExecutionError wraps a failure raised by the tool itself.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// RecursionLimitError is returned when the model keeps requesting tools after
// Limit passes.
type RecursionLimitError struct {
	Limit int
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("%s: no final answer after %d passes", ErrRecursionLimitExceeded, e.Limit)
}

func (e *RecursionLimitError) Is(target error) bool { return target == ErrRecursionLimitExceeded }

// InvalidTurnError reports a turn that breaks the conversation invariants.
type InvalidTurnError struct {
	Index  int // position the turn would have taken in the log
	Role   Role
	Reason string
}

func (e *InvalidTurnError) Error() string {
	return fmt.Sprintf("invalid %s turn at index %d: %s", e.Role, e.Index, e.Reason)
}
