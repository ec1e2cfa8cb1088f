package access

import (
	"context"
	"encoding/json"
	"fmt"

	wavecasterrors "github.com/wavecast/wavecast-go/pkg/errors"
	"github.com/wavecast/wavecast-go/pkg/log"
	"github.com/wavecast/wavecast-go/pkg/transport"
)

// Manager issues and revokes access-manager tokens over a Transport.
// It is the access-manager "request builder" spec.md §1 calls out as
// external to the core, wired here as its own small client so the
// root package has a single entry point for grant/revoke.
type Manager struct {
	Transport    transport.Transport
	SubscribeKey string
	Signer       *Signer
	Logger       log.Logger
}

// NewManager builds a Manager. signer may be nil when the deployment
// has no secret key configured, in which case grant/revoke calls are
// sent unsigned (the server will reject them if signing is required).
func NewManager(t transport.Transport, subscribeKey string, signer *Signer) *Manager {
	return &Manager{
		Transport:    t,
		SubscribeKey: subscribeKey,
		Signer:       signer,
		Logger:       log.WithComponent("access-manager"),
	}
}

// grantTokenResponse is the decoded body of a successful grant call.
type grantTokenResponse struct {
	Status int `json:"status"`
	Data   struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Grant sends req to POST /v3/pam/{sub_key}/grant and returns the
// issued token string, spec.md §6/§8 scenario 6.
func (m *Manager) Grant(ctx context.Context, req *GrantRequest) (string, error) {
	path := fmt.Sprintf("/v3/pam/%s/grant", m.SubscribeKey)
	body, err := json.Marshal(req.Build())
	if err != nil {
		return "", &wavecasterrors.SerializationError{Details: err.Error()}
	}

	resp, err := m.send(ctx, transport.MethodPost, path, nil, body)
	if err != nil {
		return "", err
	}

	var decoded grantTokenResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return "", &wavecasterrors.DeserializationError{Details: err.Error()}
	}
	return decoded.Data.Token, nil
}

// Revoke sends DELETE /v3/pam/{sub_key}/grant/{token}, invalidating a
// previously granted token server-side.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	path := fmt.Sprintf("/v3/pam/%s/grant/%s", m.SubscribeKey, token)
	_, err := m.send(ctx, transport.MethodDelete, path, nil, nil)
	return err
}

func (m *Manager) send(ctx context.Context, method transport.Method, path string, query map[string]string, body []byte) (transport.Response, error) {
	if query == nil {
		query = map[string]string{}
	}
	if m.Signer != nil {
		ts, sig := m.Signer.Sign(string(method), path, query, body)
		query["timestamp"] = ts
		query["signature"] = sig
	}

	resp, err := m.Transport.Send(ctx, transport.Request{
		Path:            path,
		Method:          method,
		QueryParameters: query,
		Headers:         map[string]string{"Content-Type": "application/json"},
		Body:            body,
	})
	if err != nil {
		return transport.Response{}, err
	}
	if resp.Status >= 400 {
		return transport.Response{}, wavecasterrors.Normalize(resp.Status, resp.Body)
	}
	return resp, nil
}
