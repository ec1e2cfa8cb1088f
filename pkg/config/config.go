/*
Package config builds the client configuration the root package wires
into the transport, subscribe/presence executors, cryptor module, and
access manager: subscribe/publish/secret keys, origin, heartbeat
interval, retry policy, filter expression, presence state, and cipher
key. Construction is functional-options over a sensible default,
plus a YAML loader for file-based configuration.

It is grounded on cmd/warren/apply.go's YAML-manifest loading
(os.ReadFile + yaml.Unmarshal into a typed struct, then field-by-field
validation before use), generalized from a one-shot "apply this
resource" manifest into a long-lived client Config loaded once at
startup.
*/
package config

import (
	"time"

	"github.com/wavecast/wavecast-go/pkg/crypto"
	"github.com/wavecast/wavecast-go/pkg/retry"
)

const (
	defaultOrigin         = "https://ps.pndsn.com"
	defaultRequestTimeout = 10 * time.Second
)

// Config holds every setting the client's subsystems need. Build one
// with New and functional Option values, or load one from YAML with
// LoadFile/Parse.
type Config struct {
	SubscribeKey string
	PublishKey   string
	SecretKey    string
	UserID       string

	Origin         string
	UseHTTPS       bool
	RequestTimeout time.Duration

	HeartbeatSeconds int
	FilterExpression string
	PresenceState    map[string]any

	RetryPolicy retry.Policy

	CipherKey    string
	UseRandomIV  bool
	CryptoModule *crypto.Module
}

// Option mutates a Config during construction.
type Option func(*Config)

// New builds a Config for subscribeKey/publishKey/userID with
// reasonable defaults: the default public origin, HTTPS enabled, a
// 10s request timeout, and no retry/cipher configuration.
func New(subscribeKey, publishKey, userID string, opts ...Option) *Config {
	c := &Config{
		SubscribeKey:   subscribeKey,
		PublishKey:     publishKey,
		UserID:         userID,
		Origin:         defaultOrigin,
		UseHTTPS:       true,
		RequestTimeout: defaultRequestTimeout,
		RetryPolicy:    retry.None{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.CipherKey != "" && c.CryptoModule == nil {
		ivMode := crypto.ConstantIV
		if c.UseRandomIV {
			ivMode = crypto.RandomIV
		}
		c.CryptoModule = crypto.NewModule(crypto.NewAESCBCCryptor(c.CipherKey, ivMode))
	}
	return c
}

// WithSecretKey configures the secret key used to sign access-manager
// requests.
func WithSecretKey(key string) Option {
	return func(c *Config) { c.SecretKey = key }
}

// WithOrigin overrides the default public origin.
func WithOrigin(origin string, useHTTPS bool) Option {
	return func(c *Config) { c.Origin = origin; c.UseHTTPS = useHTTPS }
}

// WithRequestTimeout overrides the non-long-poll request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) { c.RequestTimeout = d }
}

// WithHeartbeat sets the presence heartbeat interval in seconds. 0
// (the default) disables presence heartbeats per spec.md §4.D.
func WithHeartbeat(seconds int) Option {
	return func(c *Config) { c.HeartbeatSeconds = seconds }
}

// WithFilterExpression sets the subscribe-side filter expression.
func WithFilterExpression(expr string) Option {
	return func(c *Config) { c.FilterExpression = expr }
}

// WithPresenceState sets the per-channel state announced on the first
// subscribe handshake.
func WithPresenceState(state map[string]any) Option {
	return func(c *Config) { c.PresenceState = state }
}

// WithRetryPolicy overrides the default no-retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Config) { c.RetryPolicy = p }
}

// WithCipherKey configures the legacy AES-CBC cryptor as the module's
// default cryptor. randomIV selects a fresh IV per encryption;
// otherwise the fixed legacy IV is used (spec.md §4.A/§8 scenario 5).
func WithCipherKey(key string, randomIV bool) Option {
	return func(c *Config) { c.CipherKey = key; c.UseRandomIV = randomIV }
}

// WithCryptoModule installs a fully-built cryptor module directly,
// bypassing WithCipherKey's single-cryptor convenience constructor —
// for callers that need additional decrypt-only cryptors alongside
// the default.
func WithCryptoModule(m *crypto.Module) Option {
	return func(c *Config) { c.CryptoModule = m }
}

// BaseURL returns the origin as a full scheme-qualified base URL for
// transport.NewHTTPTransport.
func (c *Config) BaseURL() string {
	scheme := "https://"
	if !c.UseHTTPS {
		scheme = "http://"
	}
	return scheme + c.Origin
}
