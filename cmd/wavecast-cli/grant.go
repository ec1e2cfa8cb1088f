package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wavecast/wavecast-go/pkg/access"
)

var grantCmd = &cobra.Command{
	Use:   "grant <channel> <permissions>",
	Short: "Grant an access-manager token for a channel",
	Long: `Grant a token scoped to one channel. permissions is a comma-separated
list of read,write,manage,delete,get,update,join, e.g. "read,write".`,
	Args: cobra.ExactArgs(2),
	RunE: runGrant,
}

func init() {
	grantCmd.Flags().Int("ttl", 60, "token time-to-live in minutes")
}

func runGrant(cmd *cobra.Command, args []string) error {
	channel, permString := args[0], args[1]
	ttl, _ := cmd.Flags().GetInt("ttl")

	mask, err := parsePermissions(permString)
	if err != nil {
		return err
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	req := access.NewGrantRequest(ttl).Channel(channel, mask)
	token, err := c.Grant(context.Background(), req)
	if err != nil {
		return fmt.Errorf("grant failed: %w", err)
	}
	fmt.Println(token)
	return nil
}

func parsePermissions(s string) (uint8, error) {
	named := map[string]access.Permission{
		"read":   access.PermissionRead,
		"write":  access.PermissionWrite,
		"manage": access.PermissionManage,
		"delete": access.PermissionDelete,
		"get":    access.PermissionGet,
		"update": access.PermissionUpdate,
		"join":   access.PermissionJoin,
	}

	var perms []access.Permission
	for _, part := range strings.Split(s, ",") {
		p, ok := named[strings.TrimSpace(part)]
		if !ok {
			return 0, fmt.Errorf("unknown permission %q", part)
		}
		perms = append(perms, p)
	}
	return access.Mask(perms...), nil
}
