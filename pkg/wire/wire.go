/*
Package wire holds the JSON shapes exchanged with the network over
HTTP (spec.md §6): subscribe responses, publish responses, and the
server's real-time event envelope. These are plain data structs with
json tags; nothing in this package does I/O.

It is grounded on the proto-generated request/response structs
cuemby-warren/pkg/client builds by hand around its gRPC calls,
generalized from protobuf messages to JSON-tagged structs since this
SDK's wire format is JSON over HTTP rather than protobuf over gRPC.
*/
package wire

import "encoding/json"

// MessageType enumerates the kinds of real-time events the subscribe
// endpoint can deliver, per spec.md §3.
type MessageType int

const (
	MessageTypePublish       MessageType = 0
	MessageTypeSignal        MessageType = 1
	MessageTypeObject        MessageType = 2
	MessageTypeMessageAction MessageType = 3
	MessageTypeFile          MessageType = 4
)

// SubscribeCursor is the `t` field of a subscribe response.
type SubscribeCursor struct {
	Timetoken string `json:"t"`
	Region    uint32 `json:"r"`
}

// Envelope is one entry of a subscribe response's `m` array — the
// server's on-the-wire real-time event, spec.md §3.
type Envelope struct {
	Shard             string          `json:"a"`
	DebugFlags        int             `json:"f"`
	SubscriptionMatch string          `json:"b"`
	Channel           string          `json:"c"`
	Payload           json.RawMessage `json:"d"`
	ServiceEnvelope   json.RawMessage `json:"e"`
	MessageType       *MessageType    `json:"e2,omitempty"`
	PublishedCursor    SubscribeCursor `json:"p"`
	SenderID          string          `json:"i,omitempty"`
	SequenceNumber    *int            `json:"s,omitempty"`
	SpaceID           string          `json:"spc,omitempty"`
	Type              string          `json:"type,omitempty"`
}

// EffectiveMessageType returns the envelope's message type, defaulting
// to Publish when absent (spec.md §6: "message_type defaults to 0 when
// absent").
func (e Envelope) EffectiveMessageType() MessageType {
	if e.MessageType == nil {
		return MessageTypePublish
	}
	return *e.MessageType
}

// SubscribeResponse is the decoded body of a subscribe long-poll call.
type SubscribeResponse struct {
	Cursor     SubscribeCursor `json:"t"`
	Envelopes  []Envelope      `json:"m"`
}

// PublishResponse is the decoded body of a publish call: a JSON array
// `[1, "Sent", "<timetoken>"]` on success or `[0, "<error>"]` on
// failure.
type PublishResponse struct {
	Code      int
	Message   string
	Timetoken string
}

// UnmarshalJSON decodes the heterogeneous publish response array.
func (r *PublishResponse) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw[0], &r.Code)
	}
	if len(raw) > 1 {
		_ = json.Unmarshal(raw[1], &r.Message)
	}
	if len(raw) > 2 {
		_ = json.Unmarshal(raw[2], &r.Timetoken)
	}
	return nil
}

// Success reports whether the publish call's first element was 1.
func (r PublishResponse) Success() bool { return r.Code == 1 }

// GrantTokenRequest is the POST body for `/v3/pam/{sub_key}/grant`,
// spec.md §6/§8 scenario 6.
type GrantTokenRequest struct {
	TTL               int                    `json:"ttl"`
	AuthorizedUserID  string                 `json:"authorized_uuid,omitempty"`
	Permissions       GrantPermissions       `json:"permissions"`
	Meta              map[string]any         `json:"meta,omitempty"`
}

// GrantPermissions holds the resource and pattern permission maps for
// a grant-token request.
type GrantPermissions struct {
	Resources GrantResourceSet `json:"resources"`
	Patterns  GrantResourceSet `json:"patterns"`
}

// GrantResourceSet groups the four resource kinds a grant can target.
type GrantResourceSet struct {
	Channels map[string]uint8 `json:"channels,omitempty"`
	Groups   map[string]uint8 `json:"groups,omitempty"`
	Users    map[string]uint8 `json:"uuids,omitempty"`
	Spaces   map[string]uint8 `json:"spaces,omitempty"`
}
