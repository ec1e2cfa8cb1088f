package wavecast

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/wavecast/wavecast-go/pkg/log"
	"github.com/wavecast/wavecast-go/pkg/metrics"
	"github.com/wavecast/wavecast-go/pkg/transport"
	"github.com/wavecast/wavecast-go/pkg/wire"
)

// PublishOptions configures a single Publish/Signal call. The zero
// value sends with no replication override, no TTL, and no metadata.
type PublishOptions struct {
	Store       *bool // nil omits the store query parameter entirely
	TTL         int
	DisableRepl bool
	SpaceID     string
	MessageType string
	Meta        map[string]any
}

// Publish sends message to channel as a regular (stored, replicated)
// message, spec.md §6's publish endpoint. message is JSON-marshaled;
// when the client was configured with a cipher key the marshaled
// payload is encrypted and wrapped in a quoted base64 string, matching
// what the subscribe side's decodePayload expects to unwrap.
func (c *Client) Publish(ctx context.Context, channel string, message any, opts PublishOptions) (string, error) {
	return c.publish(ctx, channel, message, opts, "")
}

// Signal sends message to channel as a signal: unstored, unreplicated,
// delivered only to currently-subscribed listeners.
func (c *Client) Signal(ctx context.Context, channel string, message any) (string, error) {
	opts := PublishOptions{DisableRepl: true}
	return c.publish(ctx, channel, message, opts, "signal")
}

func (c *Client) publish(ctx context.Context, channel string, message any, opts PublishOptions, kind string) (string, error) {
	timer := metrics.NewTimer()
	outcome := "error"
	defer func() {
		timer.ObserveDuration(metrics.PublishDuration)
		metrics.PublishRequestsTotal.WithLabelValues(kindLabel(kind), outcome).Inc()
	}()

	payload, err := c.encodePayload(message)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("/publish/%s/%s/0/%s/0", c.config.PublishKey, c.config.SubscribeKey, transport.EncodeChannelList([]string{channel}))

	query := map[string]string{"seqn": fmt.Sprintf("%d", c.nextSeqn())}
	if kind == "signal" {
		query["type"] = "signal"
	} else if opts.MessageType != "" {
		query["type"] = opts.MessageType
	}
	if opts.Store != nil {
		if *opts.Store {
			query["store"] = "1"
		} else {
			query["store"] = "0"
		}
	}
	if opts.TTL > 0 {
		query["ttl"] = fmt.Sprintf("%d", opts.TTL)
	}
	if opts.DisableRepl {
		query["norep"] = "true"
	}
	if opts.SpaceID != "" {
		query["space-id"] = opts.SpaceID
	}
	if opts.Meta != nil {
		metaJSON, err := json.Marshal(opts.Meta)
		if err != nil {
			return "", err
		}
		query["meta"] = string(metaJSON)
	}

	resp, err := c.transport.Send(ctx, transport.Request{
		Path:            path,
		Method:          transport.MethodPost,
		QueryParameters: query,
		Headers:         map[string]string{"Content-Type": "application/json"},
		Body:            payload,
	})
	if err != nil {
		return "", err
	}

	var decoded wire.PublishResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return "", err
	}
	if !decoded.Success() {
		return "", fmt.Errorf("publish failed: %s", decoded.Message)
	}
	outcome = "ok"
	return decoded.Timetoken, nil
}

// encodePayload JSON-marshals message, encrypting it when a cryptor
// module is configured and re-wrapping the ciphertext as a quoted
// base64 string, the inverse of pkg/manager/translate.go's
// decodePayload.
func (c *Client) encodePayload(message any) ([]byte, error) {
	raw, err := json.Marshal(message)
	if err != nil {
		return nil, err
	}
	if c.config.CryptoModule == nil {
		return raw, nil
	}
	cipherBytes, err := c.config.CryptoModule.Encrypt(raw)
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(cipherBytes)
	return json.Marshal(encoded)
}

// nextSeqn returns the next value of the rolling publish sequence
// number, wrapping silently at 65535 back to zero (spec.md §9: the
// source's silent u16 overflow is preserved, but wraparound is logged
// here rather than replicated as a bug).
func (c *Client) nextSeqn() uint16 {
	next := atomic.AddUint32(&c.seqn, 1)
	seqn := uint16(next % 65536)
	if seqn == 0 {
		log.WithComponent("client").Debug("publish sequence number wrapped to zero")
	}
	return seqn
}

func kindLabel(kind string) string {
	if kind == "" {
		return "publish"
	}
	return kind
}
