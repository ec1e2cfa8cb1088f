package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var revokeCmd = &cobra.Command{
	Use:   "revoke <token>",
	Short: "Revoke a previously granted access-manager token",
	Args:  cobra.ExactArgs(1),
	RunE:  runRevoke,
}

func runRevoke(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Revoke(context.Background(), args[0]); err != nil {
		return fmt.Errorf("revoke failed: %w", err)
	}
	fmt.Println("revoked")
	return nil
}
