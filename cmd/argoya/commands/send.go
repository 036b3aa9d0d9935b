package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// send --name <name> <message>: join, broadcast one message and leave.
func sendCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Join, broadcast one message and leave",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := appCtx.Lifecycle.Join(ctx, name); err != nil {
				return fmt.Errorf("join: %w", err)
			}
			sendErr := appCtx.Lifecycle.Send(ctx, strings.Join(args, " "))

			leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := appCtx.Lifecycle.Leave(leaveCtx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "relay was not notified of leave: %v\n", err)
			}
			if sendErr != nil {
				return sendErr
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "throwaway display name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
