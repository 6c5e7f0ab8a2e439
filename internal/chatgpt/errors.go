package chatgpt

import "fmt"

// CompletionError wraps any provider failure: unreachable API, rate
// limit, or an error payload. The conversation layer substitutes the
// fallback reply instead of letting it escape.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion request failed: %v", e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// ValidationError marks a request rejected before reaching the
// provider, e.g. generating an image from an empty prompt. Adapters
// turn it into an instructional message, not an apology.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
