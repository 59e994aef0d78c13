package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/homelab-remote/internal/service"
)

func newServiceCmd(stdout io.Writer, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the systemd unit",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install, enable and start the systemd unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := service.DefaultConfig(*configPath)
			if err != nil {
				return err
			}
			if err := service.Install(unit); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Installed homelab-remote.service (config: %s)\n", unit.ConfigPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "uninstall",
		Short: "Stop and remove the systemd unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.Uninstall(); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Removed homelab-remote.service")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the systemd unit state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := service.Status()
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "installed: %t\nenabled: %t\nactive: %s (%s)\n",
				st.IsInstalled, st.IsEnabled, st.ActiveState, st.SubState)
			return nil
		},
	})

	return cmd
}
