package main

import (
	"fmt"
	"io"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

// openURL is replaced in tests.
var openURL = browser.OpenURL

func newOpenCmd(stdout io.Writer, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "open <service-id>",
		Short: "Open a service's web UI in the default browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			svc, ok := cfg.FindService(args[0])
			if !ok {
				return fmt.Errorf("service '%s' not found", args[0])
			}

			url := fmt.Sprintf("http://localhost:%d", svc.Port)
			fmt.Fprintf(stdout, "Opening %s\n", url)
			return openURL(url)
		},
	}
}
