package manager

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecast/wavecast-go/pkg/crypto"
	"github.com/wavecast/wavecast-go/pkg/dispatcher"
	"github.com/wavecast/wavecast-go/pkg/entity"
	"github.com/wavecast/wavecast-go/pkg/wire"
)

func TestSubscriptionNameMatchesChannelOrMatch(t *testing.T) {
	in := entity.NewInput([]string{"demo"}, nil)
	assert.True(t, subscriptionNameMatches(in, wire.Envelope{Channel: "demo"}))
	assert.False(t, subscriptionNameMatches(in, wire.Envelope{Channel: "other"}))

	groupIn := entity.NewInput(nil, []string{"group1"})
	assert.True(t, subscriptionNameMatches(groupIn, wire.Envelope{Channel: "demo", SubscriptionMatch: "group1"}))
}

func TestTranslateEnvelopeDefaultsToPublishMessage(t *testing.T) {
	env := wire.Envelope{Channel: "demo", Payload: json.RawMessage(`"hi"`)}
	update, ok := translateEnvelope(env, nil)
	require.True(t, ok)
	assert.Equal(t, dispatcher.UpdateMessage, update.Kind)
	assert.Equal(t, []byte(`"hi"`), update.Message.Data)
}

func TestTranslateEnvelopeSignalType(t *testing.T) {
	signalType := wire.MessageTypeSignal
	env := wire.Envelope{Channel: "demo", Payload: json.RawMessage(`"ping"`), MessageType: &signalType}
	update, ok := translateEnvelope(env, nil)
	require.True(t, ok)
	assert.Equal(t, dispatcher.UpdateSignal, update.Kind)
	assert.Equal(t, []byte(`"ping"`), update.Signal.Data)
}

func TestTranslateEnvelopePresenceChannel(t *testing.T) {
	env := wire.Envelope{Channel: "demo-pnpres", Payload: json.RawMessage(`{"action":"join","uuid":"u1"}`)}
	update, ok := translateEnvelope(env, nil)
	require.True(t, ok)
	assert.Equal(t, dispatcher.UpdatePresence, update.Kind)
	assert.Equal(t, "demo", update.Presence.Channel)
	assert.Equal(t, "join", update.Presence.Event)
	assert.Equal(t, "u1", update.Presence.UUID)
}

func TestTranslateEnvelopeWithoutChannelFails(t *testing.T) {
	_, ok := translateEnvelope(wire.Envelope{}, nil)
	assert.False(t, ok)
}

func TestDecodePayloadRoundTripsWithCryptoModule(t *testing.T) {
	legacy := crypto.NewAESCBCCryptor("enigma", crypto.ConstantIV)
	module := crypto.NewModule(legacy)

	// decodePayload expects the legacy cryptor's raw ciphertext
	// base64'd and wrapped in a JSON string, the publish side's
	// on-the-wire shape for an encrypted message.
	plaintext := []byte(`"secret message"`)
	env, err := legacy.Encrypt(plaintext)
	require.NoError(t, err)
	encoded, err := json.Marshal(base64.StdEncoding.EncodeToString(env.Ciphertext))
	require.NoError(t, err)

	got, decErr := decodePayload(encoded, module)
	require.NoError(t, decErr)
	assert.Equal(t, plaintext, got)
}

func TestDecodePayloadPassesThroughWithoutCryptoModule(t *testing.T) {
	raw := json.RawMessage(`"plain"`)
	got, err := decodePayload(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), got)
}
