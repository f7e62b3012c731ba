package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"fieldsync-backend/internal/remote"
)

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle and print its result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.worker.RunNow(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

// NewPingCommand creates the ping command.
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the remote endpoint is reachable and compatible",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			ack := remote.NewClient(cfg.Remote).Ping(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), ack.Message)
			if !ack.Success {
				return fmt.Errorf("ping failed: %s", ack.Message)
			}
			return nil
		},
	}
}
