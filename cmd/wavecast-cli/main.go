package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wavecast/wavecast-go/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wavecast-cli",
	Short: "wavecast-cli - a demo client for the wavecast pub/sub network",
	Long: `wavecast-cli exercises the wavecast-go client library: publish and
subscribe to channels, and grant or revoke access-manager tokens.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("wavecast-cli version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("subscribe-key", os.Getenv("WAVECAST_SUBSCRIBE_KEY"), "Subscribe key")
	rootCmd.PersistentFlags().String("publish-key", os.Getenv("WAVECAST_PUBLISH_KEY"), "Publish key")
	rootCmd.PersistentFlags().String("secret-key", os.Getenv("WAVECAST_SECRET_KEY"), "Secret key (required for grant/revoke)")
	rootCmd.PersistentFlags().String("user-id", "wavecast-cli", "User id announced to the network")
	rootCmd.PersistentFlags().String("cipher-key", "", "Cipher key for message encryption (optional)")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOutput, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
	}

	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(subscribeCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(revokeCmd)
}
