package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newStartCmd(stdout io.Writer, configPath *string) *cobra.Command {
	return newActionCmd(stdout, configPath, "start", "Start a service", func(a *app) actionFunc {
		return a.controller.Start
	})
}

func newStopCmd(stdout io.Writer, configPath *string) *cobra.Command {
	return newActionCmd(stdout, configPath, "stop", "Stop a service", func(a *app) actionFunc {
		return a.controller.Stop
	})
}

type actionFunc func(ctx context.Context, id, actor string) (string, error)

func newActionCmd(stdout io.Writer, configPath *string, use, short string, pick func(*app) actionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <service-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			msg, err := pick(a)(ctx, args[0], cliActor)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, msg)
			return nil
		},
	}
}
