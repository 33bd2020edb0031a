package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// ErrStructuredUnsupported is returned when a provider cannot produce
// schema-constrained output.
var ErrStructuredUnsupported = errors.New("structured output not supported")

// Kind classifies gateway failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindInvalidRequest
	KindServiceUnavailable
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth_error"
	case KindInvalidRequest:
		return "invalid_request"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindNetwork:
		return "network_error"
	default:
		return "unknown_error"
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind     Kind
	Provider string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (%d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusBadRequest, status == http.StatusNotFound,
		status == http.StatusRequestEntityTooLarge, status == http.StatusUnprocessableEntity:
		return KindInvalidRequest
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return KindServiceUnavailable
	default:
		return KindUnknown
	}
}

// statusError classifies a failure that carries an HTTP status.
func statusError(provider string, status int, err error) error {
	return &Error{Kind: kindForStatus(status), Provider: provider, Status: status, Err: err}
}

// transportError classifies a failure without a status. Context
// cancellation is returned untouched.
func transportError(provider string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	if isNetwork(err) {
		return &Error{Kind: KindNetwork, Provider: provider, Err: err}
	}
	return &Error{Kind: KindUnknown, Provider: provider, Err: err}
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Classify returns the kind of any error produced by a gateway.
func Classify(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if err != nil && isNetwork(err) {
		return KindNetwork
	}
	return KindUnknown
}

// UserMessage turns a gateway error into text fit for the error banner.
func UserMessage(err error) string {
	provider := "model"
	var e *Error
	if errors.As(err, &e) && e.Provider != "" {
		provider = providerTitle(e.Provider)
	}

	switch Classify(err) {
	case KindAuth:
		return fmt.Sprintf("The %s API rejected the credentials. Check LLM_API_KEY.", provider)
	case KindInvalidRequest:
		return fmt.Sprintf("The %s API rejected the request. Try a shorter or different input.", provider)
	case KindServiceUnavailable:
		return fmt.Sprintf("The %s API is busy or unavailable right now. Please try again shortly.", provider)
	case KindNetwork:
		return fmt.Sprintf("Could not reach the %s API. Check the network connection and try again.", provider)
	default:
		return fmt.Sprintf("Failed to communicate with the %s API.", provider)
	}
}

func providerTitle(provider string) string {
	switch provider {
	case ProviderGemini:
		return "Gemini"
	case ProviderOpenRouter:
		return "OpenRouter"
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderAnthropic:
		return "Anthropic"
	default:
		return provider
	}
}
