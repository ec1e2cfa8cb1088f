/*
Package errors defines the error kinds consumed by wavecast-go's core
(spec.md §7) as concrete Go error types, plus Normalize, which parses a
server error response body against the seven schemas the network is
known to emit and reduces all of them to one API error.

It is grounded on the multi-shape-response handling cuemby-warren's
pkg/client does ad hoc per RPC (checking a status field before
returning), generalized here into a single best-fit-in-order decoder
since this SDK's transport is HTTP+JSON rather than gRPC status codes.
*/
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// TransportError is raised by the transport layer (connection refused,
// timeout, TLS failure, and so on).
type TransportError struct {
	Details string
	Status  int // 0 when no HTTP status was ever received
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error (status %d): %s", e.Status, e.Details)
	}
	return "transport error: " + e.Details
}

// RequestCancelError is raised when a managed effect is cancelled
// before it completes. Executors treat this specially: it never
// reaches the state machine as a *Failure event.
type RequestCancelError struct{}

func (e *RequestCancelError) Error() string { return "request cancelled" }

// IsRequestCancel reports whether err is (or wraps) a cancellation.
func IsRequestCancel(err error) bool {
	var target *RequestCancelError
	return stderrors.As(err, &target)
}

// APIError is the single normalized shape every server error body
// reduces to via Normalize.
type APIError struct {
	Status                int
	Message               string
	Service               string
	AffectedChannels      []string
	AffectedChannelGroups []string
}

func (e *APIError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("api error (%s, status %d): %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// SerializationError wraps a failure to encode an outgoing payload.
type SerializationError struct{ Details string }

func (e *SerializationError) Error() string { return "serialization error: " + e.Details }

// DeserializationError wraps a failure to decode an incoming payload.
type DeserializationError struct{ Details string }

func (e *DeserializationError) Error() string { return "deserialization error: " + e.Details }

// SubscribeInitializationError is a builder validation error raised
// before a subscribe request is ever sent (e.g. an empty input).
type SubscribeInitializationError struct{ Details string }

func (e *SubscribeInitializationError) Error() string {
	return "subscribe initialization error: " + e.Details
}

// PublishInitializationError is a builder validation error raised
// before a publish request is ever sent.
type PublishInitializationError struct{ Details string }

func (e *PublishInitializationError) Error() string {
	return "publish initialization error: " + e.Details
}

// Normalize parses an HTTP error response body against the seven known
// server error shapes and reduces it to one APIError. status is the
// HTTP status code observed alongside body.
func Normalize(status int, body []byte) *APIError {
	if len(body) == 0 {
		return &APIError{Status: status, Message: "unknown error"}
	}

	if api, ok := tryArray(status, body); ok {
		return api
	}
	if api, ok := tryServiceMessage(status, body); ok {
		return api
	}
	if api, ok := tryPayloadChannels(status, body); ok {
		return api
	}
	if api, ok := tryErrorMessage(status, body); ok {
		return api
	}
	if api, ok := tryNestedErrorWithDetails(status, body); ok {
		return api
	}
	if api, ok := tryNestedError(status, body); ok {
		return api
	}
	if api, ok := tryPlainMessage(status, body); ok {
		return api
	}

	return &APIError{Status: status, Message: string(body)}
}

// tryArray handles `[1, "Sent", "<tt>"]` / `[0, "<error>"]` style
// bodies (array-2 and array-3 shapes).
func tryArray(status int, body []byte) (*APIError, bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal(body, &arr); err != nil || len(arr) < 2 {
		return nil, false
	}
	var code int
	if err := json.Unmarshal(arr[0], &code); err != nil {
		return nil, false
	}
	if code == 1 {
		return nil, false // success shape, not an error
	}
	var msg string
	_ = json.Unmarshal(arr[1], &msg)
	return &APIError{Status: status, Message: msg}, true
}

// tryServiceMessage handles `{"service": "...", "message": "..."}`.
func tryServiceMessage(status int, body []byte) (*APIError, bool) {
	var shape struct {
		Service string `json:"service"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &shape); err != nil || shape.Service == "" {
		return nil, false
	}
	return &APIError{Status: status, Message: shape.Message, Service: shape.Service}, true
}

// tryPayloadChannels handles `{"payload": {"channels": [...], "channel-groups": [...]}, "message": "..."}`.
func tryPayloadChannels(status int, body []byte) (*APIError, bool) {
	var shape struct {
		Message string `json:"message"`
		Payload struct {
			Channels      []string `json:"channels"`
			ChannelGroups []string `json:"channel-groups"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return nil, false
	}
	if len(shape.Payload.Channels) == 0 && len(shape.Payload.ChannelGroups) == 0 {
		return nil, false
	}
	return &APIError{
		Status:                status,
		Message:               shape.Message,
		AffectedChannels:      shape.Payload.Channels,
		AffectedChannelGroups: shape.Payload.ChannelGroups,
	}, true
}

// tryErrorMessage handles `{"error_message": "..."}`.
func tryErrorMessage(status int, body []byte) (*APIError, bool) {
	var shape struct {
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(body, &shape); err != nil || shape.ErrorMessage == "" {
		return nil, false
	}
	return &APIError{Status: status, Message: shape.ErrorMessage}, true
}

// tryNestedErrorWithDetails handles
// `{"error": {"source": "...", "message": "...", "details": [...]}}`.
func tryNestedErrorWithDetails(status int, body []byte) (*APIError, bool) {
	var shape struct {
		Error struct {
			Source  string   `json:"source"`
			Message string   `json:"message"`
			Details []string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &shape); err != nil || len(shape.Error.Details) == 0 {
		return nil, false
	}
	msg := shape.Error.Message
	for _, d := range shape.Error.Details {
		msg += "; " + d
	}
	return &APIError{Status: status, Message: msg, Service: shape.Error.Source}, true
}

// tryNestedError handles `{"error": {"source": "...", "message": "..."}}`
// without a details array.
func tryNestedError(status int, body []byte) (*APIError, bool) {
	var shape struct {
		Error struct {
			Source  string `json:"source"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &shape); err != nil || shape.Error.Message == "" {
		return nil, false
	}
	return &APIError{Status: status, Message: shape.Error.Message, Service: shape.Error.Source}, true
}

// tryPlainMessage is the final fallback: a bare `{"message": "..."}`.
func tryPlainMessage(status int, body []byte) (*APIError, bool) {
	var shape struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &shape); err != nil || shape.Message == "" {
		return nil, false
	}
	return &APIError{Status: status, Message: shape.Message}, true
}
