package main

import (
	"fmt"

	"github.com/spf13/cobra"

	wavecast "github.com/wavecast/wavecast-go"
	"github.com/wavecast/wavecast-go/pkg/config"
)

// newClient builds a wavecast.Client from the root command's
// persistent flags, mirroring cmd/warren/apply.go's per-command
// "read flags, build a client" shape.
func newClient(cmd *cobra.Command) (*wavecast.Client, error) {
	subscribeKey, _ := cmd.Flags().GetString("subscribe-key")
	publishKey, _ := cmd.Flags().GetString("publish-key")
	secretKey, _ := cmd.Flags().GetString("secret-key")
	userID, _ := cmd.Flags().GetString("user-id")
	cipherKey, _ := cmd.Flags().GetString("cipher-key")

	if subscribeKey == "" {
		return nil, fmt.Errorf("--subscribe-key is required (or set WAVECAST_SUBSCRIBE_KEY)")
	}

	var opts []config.Option
	if secretKey != "" {
		opts = append(opts, config.WithSecretKey(secretKey))
	}
	if cipherKey != "" {
		opts = append(opts, config.WithCipherKey(cipherKey, true))
	}

	cfg := config.New(subscribeKey, publishKey, userID, opts...)
	return wavecast.New(cfg), nil
}
