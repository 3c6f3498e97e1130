package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solidcopy/multitag/internal/handler"
	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/service"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "apply <ledger.json> <file>...",
		Short: "Apply a JSON list of changes to audio files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			changes, err := ledger.Decode(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			jobs := make([]service.Job, 0, len(args)-1)
			for _, path := range args[1:] {
				var format model.Format
				if h, err := handler.NewHandler(path); err == nil {
					format = h.Format()
				}
				jobs = append(jobs, service.Job{Path: path, Ledger: ledger.FromChanges(format, changes)})
			}

			runner := ctx.runner()
			if dryRun {
				return preview(cmd, runner, jobs)
			}
			finish := attachProgress(runner, len(jobs), "saving")
			results := runner.Save(cmd.Context(), jobs)
			finish()

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{result.Path, outcome(result)})
			}
			fmt.Fprintln(out, renderTable(out, []string{"File", "Result"}, rows))
			return reportFailures(cmd, results)
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show the changes that would be written without saving")
	return cmd
}

// preview lists every change a save would make, one row per change.
func preview(cmd *cobra.Command, runner *service.Runner, jobs []service.Job) error {
	results := runner.Preview(cmd.Context(), jobs)

	out := cmd.OutOrStdout()
	var rows [][]string
	for _, result := range results {
		switch {
		case result.Err != nil:
			rows = append(rows, []string{result.Path, "", model.Classify(result.Err)})
		case len(result.Save.Applied) == 0:
			rows = append(rows, []string{result.Path, "", "unchanged"})
		default:
			for _, change := range result.Save.Applied {
				rows = append(rows, []string{result.Path, change.Op(), describe(change)})
			}
		}
	}
	fmt.Fprintln(out, renderTable(out, []string{"File", "Change", "Detail"}, rows))
	return reportFailures(cmd, results)
}

func describe(change ledger.Change) string {
	switch c := change.(type) {
	case ledger.Remove:
		return c.Tag
	case ledger.SetRaw:
		return c.Tag + " = " + strings.Join(c.Values, "; ")
	case ledger.AddPicture:
		return fmt.Sprintf("%s (%s, %d bytes)", c.Kind, c.MIME, len(c.Data))
	case ledger.RemovePicture:
		return c.Kind.String()
	case ledger.SetComments:
		return fmt.Sprintf("%d comments", len(c.Comments))
	case ledger.SetUnsyncLyrics:
		return fmt.Sprintf("%d lyrics", len(c.Lyrics))
	case ledger.SetPopularimeter:
		if c.Popularimeter == nil {
			return "removed"
		}
		return fmt.Sprintf("%d stars", c.Popularimeter.Stars())
	default:
		return ""
	}
}

func outcome(result service.FileResult) string {
	switch {
	case result.Err != nil:
		return model.Classify(result.Err)
	case result.Save.Written:
		return fmt.Sprintf("saved (%d changes)", len(result.Save.Applied))
	default:
		return "unchanged"
	}
}
