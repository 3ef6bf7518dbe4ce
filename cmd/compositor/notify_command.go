package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"compositor/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			notifier := notifications.New(cfg, logger)
			if notifier == nil {
				return errors.New("notifications.ntfy_topic is not set")
			}
			defer notifier.Close(cmd.Context())
			if err := notifier.Test(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
