package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecast/wavecast-go/pkg/retry"
)

func TestNewAppliesDefaults(t *testing.T) {
	c := New("sub", "pub", "user-1")
	assert.Equal(t, defaultOrigin, c.Origin)
	assert.True(t, c.UseHTTPS)
	assert.Equal(t, defaultRequestTimeout, c.RequestTimeout)
	assert.Equal(t, retry.None{}, c.RetryPolicy)
	assert.Nil(t, c.CryptoModule)
	assert.Equal(t, "https://"+defaultOrigin, c.BaseURL())
}

func TestWithCipherKeyBuildsCryptoModule(t *testing.T) {
	c := New("sub", "pub", "user-1", WithCipherKey("enigma", true))
	require.NotNil(t, c.CryptoModule)
}

func TestWithOriginOverridesScheme(t *testing.T) {
	c := New("sub", "pub", "user-1", WithOrigin("example.test", false))
	assert.Equal(t, "http://example.test", c.BaseURL())
}

func TestParseLoadsFromYAML(t *testing.T) {
	doc := []byte(`
subscribeKey: demo-sub
publishKey: demo-pub
userId: demo-user
heartbeatSeconds: 30
cipherKey: enigma
useRandomIv: true
presenceState:
  demo-channel:
    mood: happy
`)
	c, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "demo-sub", c.SubscribeKey)
	assert.Equal(t, "demo-pub", c.PublishKey)
	assert.Equal(t, 30, c.HeartbeatSeconds)
	require.NotNil(t, c.CryptoModule)
	assert.NotNil(t, c.PresenceState["demo-channel"])
}

func TestParseRequiresSubscribeKey(t *testing.T) {
	_, err := Parse([]byte(`publishKey: pub`))
	assert.Error(t, err)
}

func TestParseInvalidRequestTimeout(t *testing.T) {
	_, err := Parse([]byte("subscribeKey: sub\nrequestTimeout: not-a-duration\n"))
	assert.Error(t, err)
}

func TestParseRequestTimeoutOverride(t *testing.T) {
	c, err := Parse([]byte("subscribeKey: sub\nrequestTimeout: 5s\n"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.RequestTimeout)
}
