package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatusCmd(stdout io.Writer, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Probe every service once and print a table",
		Args:  cobra.NoArgs,
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
			statuses := a.poller.Refresh(ctx)

			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tPORT\tSTATUS\tPORT OPEN\tRUNNING\tERROR")
			for i, s := range statuses {
				svc := a.cfg.Services[i]
				state := "down"
				if s.Up {
					state = "up"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%t\t%t\t%s\n", s.ID, svc.Kind, svc.Port, state, s.PortOpen, s.Running, s.Error)
			}
			return tw.Flush()
		},
	}
}
