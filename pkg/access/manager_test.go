package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecast/wavecast-go/pkg/transport"
)

type fakeTransport struct {
	lastRequest transport.Request
	response    transport.Response
	err         error
}

func (f *fakeTransport) Send(_ context.Context, req transport.Request) (transport.Response, error) {
	f.lastRequest = req
	return f.response, f.err
}

func TestManagerGrantSignsAndParsesToken(t *testing.T) {
	ft := &fakeTransport{response: transport.Response{
		Status: 200,
		Body:   []byte(`{"status":200,"data":{"token":"p0abc"}}`),
	}}
	m := NewManager(ft, "demo-sub", NewSigner("demo-pub", "enigma"))

	token, err := m.Grant(context.Background(), NewGrantRequest(10).Channel("channel", Mask(PermissionRead)))
	require.NoError(t, err)
	assert.Equal(t, "p0abc", token)
	assert.Equal(t, "/v3/pam/demo-sub/grant", ft.lastRequest.Path)
	assert.Contains(t, ft.lastRequest.QueryParameters, "timestamp")
	assert.Regexp(t, `^v2\.`, ft.lastRequest.QueryParameters["signature"])
}

func TestManagerGrantWithoutSignerOmitsQueryParams(t *testing.T) {
	ft := &fakeTransport{response: transport.Response{Status: 200, Body: []byte(`{"status":200,"data":{"token":"x"}}`)}}
	m := NewManager(ft, "demo-sub", nil)

	_, err := m.Grant(context.Background(), NewGrantRequest(10))
	require.NoError(t, err)
	assert.NotContains(t, ft.lastRequest.QueryParameters, "signature")
}

func TestManagerGrantSurfacesAPIError(t *testing.T) {
	ft := &fakeTransport{response: transport.Response{
		Status: 403,
		Body:   []byte(`{"error":{"message":"forbidden","source":"pam"}}`),
	}}
	m := NewManager(ft, "demo-sub", nil)

	_, err := m.Grant(context.Background(), NewGrantRequest(10))
	assert.Error(t, err)
}

func TestManagerRevokeSendsDelete(t *testing.T) {
	ft := &fakeTransport{response: transport.Response{Status: 200, Body: []byte(`{}`)}}
	m := NewManager(ft, "demo-sub", nil)

	err := m.Revoke(context.Background(), "p0abc")
	require.NoError(t, err)
	assert.Equal(t, transport.MethodDelete, ft.lastRequest.Method)
	assert.Equal(t, "/v3/pam/demo-sub/grant/p0abc", ft.lastRequest.Path)
}
