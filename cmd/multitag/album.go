package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// dirArg returns the album directory argument, defaulting to the working
// directory.
func dirArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return os.Getwd()
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [dir]",
		Short: "Write the tags sheet and folder image of an album directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dirArg(args)
			if err != nil {
				return err
			}
			return ctx.runner().Export(cmd.Context(), dir)
		},
	}
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import [dir]",
		Short: "Save the tags sheet and folder image of an album directory into its files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dirArg(args)
			if err != nil {
				return err
			}
			runner := ctx.runner()
			results, err := runner.Import(cmd.Context(), dir)
			if err != nil {
				return err
			}
			return reportFailures(cmd, results)
		},
	}
}

func newRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename [dir]",
		Short: "Rename the audio files of an album directory after their tags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dirArg(args)
			if err != nil {
				return err
			}
			renamed, err := ctx.runner().Rename(cmd.Context(), dir)
			for from, to := range renamed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", from, to)
			}
			return err
		},
	}
}
