package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

// NewRootCmd returns the root command. Without a subcommand it serves HTTP.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "homelab-remote",
		Short:         "Start, stop and monitor home-lab services over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(".env")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newStatusCmd(stdout, &configPath))
	cmd.AddCommand(newStartCmd(stdout, &configPath))
	cmd.AddCommand(newStopCmd(stdout, &configPath))
	cmd.AddCommand(newBackupCmd(stdout, &configPath))
	cmd.AddCommand(newOpenCmd(stdout, &configPath))
	cmd.AddCommand(newHashPasswordCmd(stdout, stderr, &configPath))
	cmd.AddCommand(newServiceCmd(stdout, &configPath))
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

// loadEnv reads KEY=value pairs into the environment. A missing file is fine.
func loadEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.Printf("Loaded environment from %s", path)
	return nil
}

func execute() int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
