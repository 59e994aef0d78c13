package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/homelab-remote/internal/models"
)

func newBackupCmd(stdout io.Writer, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "backup [job]",
		Short: "Run one backup job, or all of them, and wait for the result",
		Args:  cobra.MaximumNArgs(1),
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

			names := args
			if len(names) == 0 {
				for _, job := range a.cfg.Backup.Jobs {
					names = append(names, job.Name)
				}
			}
			if len(names) == 0 {
				fmt.Fprintln(stdout, "No backup jobs configured")
				return nil
			}

			failed := 0
			for _, name := range names {
				run, err := a.backups.RunJob(ctx, name, cliActor)
				if err != nil {
					return err
				}
				if run.Status != models.BackupSuccess {
					failed++
				}
				fmt.Fprintf(stdout, "%s: %s: %s\n", run.JobName, run.Status, run.Message)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d backup jobs failed", failed, len(names))
			}
			return nil
		},
	}
}
