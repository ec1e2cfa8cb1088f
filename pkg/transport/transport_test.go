package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wavecasterrors "github.com/wavecast/wavecast-go/pkg/errors"
)

func TestHTTPTransportSendsPathQueryAndHeaders(t *testing.T) {
	var gotPath, gotQuery, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("uuid")
		gotHeader = r.Header.Get("X-Custom")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[1,"Sent","123"]`))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, 5*time.Second)
	resp, err := tr.Send(context.Background(), Request{
		Path:            "/publish/pub/sub/0/demo/0",
		Method:          MethodGet,
		QueryParameters: map[string]string{"uuid": "u1"},
		Headers:         map[string]string{"X-Custom": "yes"},
	})

	require.NoError(t, err)
	assert.Equal(t, "/publish/pub/sub/0/demo/0", gotPath)
	assert.Equal(t, "u1", gotQuery)
	assert.Equal(t, "yes", gotHeader)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, `[1,"Sent","123"]`, string(resp.Body))
}

func TestHTTPTransportSurfacesNonZeroStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Forbidden"}`))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, 5*time.Second)
	resp, err := tr.Send(context.Background(), Request{Path: "/x", Method: MethodGet})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Status)
}

func TestHTTPTransportCancelledContextReturnsRequestCancelError(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	tr := NewHTTPTransport(srv.URL, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := tr.Send(ctx, Request{Path: "/x", Method: MethodGet})
	require.Error(t, err)
	assert.True(t, wavecasterrors.IsRequestCancel(err))
}

func TestHTTPTransportInvalidBaseURLIsTransportError(t *testing.T) {
	tr := NewHTTPTransport("://not-a-url", 5*time.Second)
	_, err := tr.Send(context.Background(), Request{Path: "/x", Method: MethodGet})
	require.Error(t, err)
	var transportErr *wavecasterrors.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestEncodeChannelListEscapesCommas(t *testing.T) {
	assert.Equal(t, "%2C", EncodeChannelList(nil))
	assert.Equal(t, "demo", EncodeChannelList([]string{"demo"}))
	assert.Equal(t, "demo1%2Cdemo2", EncodeChannelList([]string{"demo1", "demo2"}))
}
