package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <channel> [channel...]",
	Short: "Subscribe to one or more channels and print events until interrupted",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSubscribe,
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	set := c.ChannelMulti(args...)
	set.Subscribe()
	defer set.Unsubscribe()

	messages := set.Dispatcher().Messages()
	signals := set.Dispatcher().Signals()
	presenceEvents := set.Dispatcher().Presence()
	statuses := set.Dispatcher().Statuses()

	fmt.Printf("subscribed to %v, press Ctrl+C to stop\n", args)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case m, ok := <-messages.C():
			if !ok {
				return nil
			}
			fmt.Printf("[message] %s: %s\n", m.Channel, string(m.Data))
		case s, ok := <-signals.C():
			if !ok {
				return nil
			}
			fmt.Printf("[signal] %s: %s\n", s.Channel, string(s.Data))
		case p, ok := <-presenceEvents.C():
			if !ok {
				return nil
			}
			fmt.Printf("[presence] %s: %s uuid=%s\n", p.Channel, p.Event, p.UUID)
		case st, ok := <-statuses.C():
			if !ok {
				return nil
			}
			fmt.Printf("[status] %s\n", st.Category)
		case <-sigCh:
			fmt.Println("\nunsubscribing...")
			return nil
		}
	}
}
