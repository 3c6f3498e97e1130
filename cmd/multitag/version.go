package main

import (
	"fmt"

	"github.com/spf13/cobra"

	multitag "github.com/solidcopy/multitag/internal"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the multitag version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "multitag", multitag.Version)
		},
	}
}
