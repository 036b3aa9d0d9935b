package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// users: list the names currently active on the relay.
func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List active participants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := appCtx.Relay.FetchActiveUsers(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "nobody is online")
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}
}
