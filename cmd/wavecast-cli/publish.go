package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	wavecast "github.com/wavecast/wavecast-go"
)

var publishCmd = &cobra.Command{
	Use:   "publish <channel> <message>",
	Short: "Publish a message to a channel",
	Args:  cobra.ExactArgs(2),
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().Bool("signal", false, "send as an unstored signal instead of a regular message")
}

func runPublish(cmd *cobra.Command, args []string) error {
	channel, message := args[0], args[1]
	asSignal, _ := cmd.Flags().GetBool("signal")

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := context.Background()
	var timetoken string
	if asSignal {
		timetoken, err = c.Signal(ctx, channel, message)
	} else {
		timetoken, err = c.Publish(ctx, channel, message, wavecast.PublishOptions{})
	}
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	fmt.Printf("published to %s at %s\n", channel, timetoken)
	return nil
}
