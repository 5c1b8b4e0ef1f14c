package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newStreamCommand(ctx *commandContext) *cobra.Command {
	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Control individual streams",
	}
	streamCmd.AddCommand(newStreamStartCommand(ctx))
	streamCmd.AddCommand(newStreamStopCommand(ctx))
	return streamCmd
}

func newStreamStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start <name> <source-url>",
		Short: "Start supervising a stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, url := args[0], args[1]
			if name == "" || url == "" {
				return errors.New("stream name and source url required")
			}

			base, err := ctx.apiBase()
			if err != nil {
				return err
			}
			started, err := newAPIClient(base).startStream(cmd.Context(), name, url)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if started {
				fmt.Fprintf(out, "Started %s\n", name)
			} else {
				fmt.Fprintf(out, "%s is already running with that source\n", name)
			}
			return nil
		},
	}
}

func newStreamStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <name>",
		Short: "Stop supervising a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBase()
			if err != nil {
				return err
			}
			if err := newAPIClient(base).stopStream(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s\n", args[0])
			return nil
		},
	}
}
