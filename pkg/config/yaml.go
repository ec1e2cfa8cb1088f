package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape LoadFile/Parse decode, mirroring
// Config's fields in their natural YAML spelling.
type fileConfig struct {
	SubscribeKey string `yaml:"subscribeKey"`
	PublishKey   string `yaml:"publishKey"`
	SecretKey    string `yaml:"secretKey,omitempty"`
	UserID       string `yaml:"userId"`

	Origin         string `yaml:"origin,omitempty"`
	UseHTTPS       *bool  `yaml:"useHttps,omitempty"`
	RequestTimeout string `yaml:"requestTimeout,omitempty"`

	HeartbeatSeconds int                    `yaml:"heartbeatSeconds,omitempty"`
	FilterExpression string                 `yaml:"filterExpression,omitempty"`
	PresenceState    map[string]interface{} `yaml:"presenceState,omitempty"`

	CipherKey   string `yaml:"cipherKey,omitempty"`
	UseRandomIV bool   `yaml:"useRandomIv,omitempty"`
}

// LoadFile reads and parses a YAML configuration file at path, per
// cmd/warren/apply.go's os.ReadFile + yaml.Unmarshal pattern.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document's bytes into a Config.
func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if fc.SubscribeKey == "" {
		return nil, fmt.Errorf("config: subscribeKey is required")
	}

	opts := []Option{}
	if fc.SecretKey != "" {
		opts = append(opts, WithSecretKey(fc.SecretKey))
	}
	if fc.Origin != "" {
		useHTTPS := true
		if fc.UseHTTPS != nil {
			useHTTPS = *fc.UseHTTPS
		}
		opts = append(opts, WithOrigin(fc.Origin, useHTTPS))
	}
	if fc.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("config: invalid requestTimeout %q: %w", fc.RequestTimeout, err)
		}
		opts = append(opts, WithRequestTimeout(d))
	}
	if fc.HeartbeatSeconds > 0 {
		opts = append(opts, WithHeartbeat(fc.HeartbeatSeconds))
	}
	if fc.FilterExpression != "" {
		opts = append(opts, WithFilterExpression(fc.FilterExpression))
	}
	if fc.PresenceState != nil {
		state := make(map[string]any, len(fc.PresenceState))
		for k, v := range fc.PresenceState {
			state[k] = v
		}
		opts = append(opts, WithPresenceState(state))
	}
	if fc.CipherKey != "" {
		opts = append(opts, WithCipherKey(fc.CipherKey, fc.UseRandomIV))
	}

	return New(fc.SubscribeKey, fc.PublishKey, fc.UserID, opts...), nil
}
