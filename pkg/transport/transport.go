/*
Package transport defines the transport contract consumed by the
executors (spec.md §6) and a net/http implementation of it.

It is grounded on the request-construction style of
cuemby-warren/pkg/client.Client, generalized from one gRPC connection
and ~15 thin per-RPC wrapper methods into a single Send(ctx, Request)
method, since every call this SDK makes (subscribe, publish, presence,
grant) shares one HTTP request/response shape and differs only in
path/query/method.
*/
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	wavecasterrors "github.com/wavecast/wavecast-go/pkg/errors"
)

// Method is restricted to the three verbs the core ever issues.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodDelete Method = http.MethodDelete
)

// Request is a transport-agnostic HTTP request, spec.md §6.
type Request struct {
	Path            string
	Method          Method
	QueryParameters map[string]string
	Headers         map[string]string
	Body            []byte
}

// Response is a transport-agnostic HTTP response, spec.md §6.
type Response struct {
	Status  int
	Headers map[string][]string
	Body    []byte
}

// Transport sends a Request and returns a Response or an error. The
// subscribe/heartbeat executors call Send from a goroutine racing a
// context cancellation, so implementations must return promptly once
// ctx is done.
type Transport interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// HTTPTransport is the default Transport, built on net/http.
type HTTPTransport struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPTransport builds an HTTPTransport. requestTimeout governs the
// underlying http.Client's per-request deadline for non-long-poll
// calls; long-poll calls (subscribe) pass a longer context deadline of
// their own, and http.Client always honors the shorter of the two.
func NewHTTPTransport(baseURL string, requestTimeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: requestTimeout},
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req Request) (Response, error) {
	u, err := url.Parse(t.BaseURL + req.Path)
	if err != nil {
		return Response{}, &wavecasterrors.TransportError{Details: "invalid request path: " + err.Error()}
	}

	q := u.Query()
	for k, v := range req.QueryParameters {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), u.String(), bodyReader)
	if err != nil {
		return Response{}, &wavecasterrors.TransportError{Details: "building request: " + err.Error()}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := t.Client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, &wavecasterrors.RequestCancelError{}
		}
		return Response{}, &wavecasterrors.TransportError{Details: err.Error()}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, &wavecasterrors.TransportError{Details: "reading response: " + err.Error(), Status: httpResp.StatusCode}
	}

	return Response{Status: httpResp.StatusCode, Headers: httpResp.Header, Body: body}, nil
}

// EncodeChannelList URL-encodes a comma-joined channel list with `,`
// escaped as `%2C`, per spec.md §6's subscribe/publish path
// convention.
func EncodeChannelList(channels []string) string {
	if len(channels) == 0 {
		return "%2C"
	}
	return url.QueryEscape(strings.Join(channels, ","))
}
