package manager

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/wavecast/wavecast-go/pkg/crypto"
	"github.com/wavecast/wavecast-go/pkg/dispatcher"
	"github.com/wavecast/wavecast-go/pkg/entity"
	"github.com/wavecast/wavecast-go/pkg/wire"
)

// subscriptionNameMatches reports whether env's channel or its
// subscription-match (channel-group/wildcard) falls within input, per
// spec.md §4.F step "whose subscription_input contains(name)".
func subscriptionNameMatches(input entity.Input, env wire.Envelope) bool {
	if env.Channel != "" && input.Contains(env.Channel) {
		return true
	}
	if env.SubscriptionMatch != "" && input.Contains(env.SubscriptionMatch) {
		return true
	}
	return false
}

// translateEnvelope decodes one wire envelope into a dispatcher.Update.
// ok is false when the envelope carries no usable channel (should not
// happen for a well-formed server response, but translate defensively
// rather than panicking).
func translateEnvelope(env wire.Envelope, cryptoModule *crypto.Module) (dispatcher.Update, bool) {
	if env.Channel == "" {
		return dispatcher.Update{}, false
	}

	published := entity.Cursor{Timetoken: env.PublishedCursor.Timetoken, Region: env.PublishedCursor.Region}

	if strings.HasSuffix(env.Channel, "-pnpres") {
		return dispatcher.Update{
			Kind:        dispatcher.UpdatePresence,
			Presence:    decodePresence(env),
			PublishedAt: published,
			Subscription: subscriptionName(env),
		}, true
	}

	switch env.EffectiveMessageType() {
	case wire.MessageTypeSignal:
		data, decErr := decodePayload(env.Payload, cryptoModule)
		return dispatcher.Update{
			Kind: dispatcher.UpdateSignal,
			Signal: &dispatcher.Message{
				Channel: env.Channel, Data: data, DecryptionError: decErr,
				PublishedAt: published, Publisher: env.SenderID,
			},
			PublishedAt:  published,
			Subscription: subscriptionName(env),
		}, true
	case wire.MessageTypeObject:
		return dispatcher.Update{
			Kind:         dispatcher.UpdateAppContext,
			AppContext:   &dispatcher.AppContextEvent{Channel: env.Channel, Type: env.Type, Data: env.Payload},
			PublishedAt:  published,
			Subscription: subscriptionName(env),
		}, true
	case wire.MessageTypeMessageAction:
		return dispatcher.Update{
			Kind:          dispatcher.UpdateMessageAction,
			MessageAction: &dispatcher.MessageActionEvent{Channel: env.Channel, Event: env.Type, Data: env.Payload},
			PublishedAt:   published,
			Subscription:  subscriptionName(env),
		}, true
	case wire.MessageTypeFile:
		return dispatcher.Update{
			Kind:         dispatcher.UpdateFile,
			File:         &dispatcher.FileEvent{Channel: env.Channel, Data: env.Payload},
			PublishedAt:  published,
			Subscription: subscriptionName(env),
		}, true
	default: // wire.MessageTypePublish
		data, decErr := decodePayload(env.Payload, cryptoModule)
		return dispatcher.Update{
			Kind: dispatcher.UpdateMessage,
			Message: &dispatcher.Message{
				Channel: env.Channel, Data: data, DecryptionError: decErr,
				PublishedAt: published, Publisher: env.SenderID,
			},
			PublishedAt:  published,
			Subscription: subscriptionName(env),
		}, true
	}
}

func subscriptionName(env wire.Envelope) string {
	if env.SubscriptionMatch != "" {
		return env.SubscriptionMatch
	}
	return env.Channel
}

// decodePayload decrypts a message/signal payload when a cryptor
// module is configured. Per spec.md §7, decryption failure is
// non-fatal: the raw payload bytes are returned alongside the error so
// the caller can still surface the message.
func decodePayload(raw json.RawMessage, cryptoModule *crypto.Module) ([]byte, error) {
	if cryptoModule == nil || len(raw) == 0 {
		return []byte(raw), nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return []byte(raw), nil
	}
	cipherBytes, err := base64.StdEncoding.DecodeString(asString)
	if err != nil {
		return []byte(raw), nil
	}
	plain, err := cryptoModule.Decrypt(cipherBytes)
	if err != nil {
		return []byte(raw), err
	}
	return plain, nil
}

func decodePresence(env wire.Envelope) *dispatcher.PresenceEvent {
	var body struct {
		Action string `json:"action"`
		UUID   string `json:"uuid"`
	}
	_ = json.Unmarshal(env.Payload, &body)
	return &dispatcher.PresenceEvent{
		Channel: strings.TrimSuffix(env.Channel, "-pnpres"),
		Event:   body.Action,
		UUID:    body.UUID,
		Data:    env.Payload,
	}
}
