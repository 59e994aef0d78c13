package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/homelab-remote/internal/services"
	"github.com/pandeptwidyaop/homelab-remote/internal/validation"
)

func newHashPasswordCmd(stdout, stderr io.Writer, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for auth.password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			if err := validation.ValidatePassword(args[0]); err != nil {
				fmt.Fprintf(stderr, "Warning: weak password: %v\n", err)
			}

			hash, err := services.NewAuthService(cfg, "").HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, hash)
			return nil
		},
	}
}
