package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slate/internal/version"
)

func newVersionCommand() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:         "version",
		Short:       "Work-file version utilities",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	versionCmd.AddCommand(newVersionNextCommand())
	versionCmd.AddCommand(newVersionFreeCommand())
	return versionCmd
}

func newVersionNextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "next <path>",
		Short: "Print the next version of a work file path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, number, err := version.Next(args[0])
			if errors.Is(err, version.ErrNoVersionToken) {
				return fmt.Errorf("%s carries no version token (expected .v###, _v### or -v###)", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (v%d)\n", next, number)
			return nil
		},
	}
}

func newVersionFreeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "free <path>",
		Short: "Print the first version of a work file path not present on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exists := func(path string) bool {
				_, err := os.Stat(path)
				return err == nil
			}
			free, number, err := version.FirstAvailable(args[0], exists)
			if errors.Is(err, version.ErrNoVersionToken) {
				return fmt.Errorf("%s carries no version token (expected .v###, _v### or -v###)", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (v%d)\n", free, number)
			return nil
		},
	}
}
