package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/service"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <file>...",
		Short: "Print the decoded tags of audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := ctx.runner().Open(cmd.Context(), args)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				for _, result := range results {
					if result.Err == nil {
						if err := enc.Encode(result.Track); err != nil {
							return err
						}
					}
				}
			} else {
				for _, result := range results {
					if result.Err == nil {
						fmt.Fprintln(out, result.Track.Path)
						fmt.Fprintln(out, renderTable(out, []string{"Key", "Value"}, trackRows(result.Track)))
					}
				}
			}
			return reportFailures(cmd, results)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tracks as JSON")
	return cmd
}

func trackRows(track *model.Track) [][]string {
	var rows [][]string
	for _, key := range track.Keys() {
		for _, value := range track.Values(key) {
			rows = append(rows, []string{key, value})
		}
	}
	for _, image := range track.Images {
		rows = append(rows, []string{"picture:" + image.Kind.String(), fmt.Sprintf("%s %dx%d, %d bytes", image.MIME, image.Width, image.Height, len(image.Data))})
	}
	if track.ID3 != nil {
		rows = append(rows, []string{"id3 version", fmt.Sprintf("2.%d", track.ID3.Version)})
		for _, c := range track.ID3.Comments {
			rows = append(rows, []string{"COMM[" + c.Language + "]" + c.Description, c.Text})
		}
		for _, l := range track.ID3.Lyrics {
			rows = append(rows, []string{"USLT[" + l.Language + "]" + l.Description, l.Text})
		}
		if p := track.ID3.Popularimeter; p != nil {
			rows = append(rows, []string{"POPM", fmt.Sprintf("%s %d (%d stars) played %d", p.Email, p.Rating, p.Stars(), p.Counter)})
		}
	}
	if len(track.Opaque) > 0 {
		rows = append(rows, []string{"preserved", strings.Join(track.Opaque, " ")})
	}
	for _, w := range track.Warnings {
		rows = append(rows, []string{"warning", w.String()})
	}
	return rows
}

// reportFailures prints every failed file and returns an error when there
// was at least one.
func reportFailures(cmd *cobra.Command, results []service.FileResult) error {
	failed := service.Failed(results)
	for _, result := range failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %v\n", result.Path, model.Classify(result.Err), result.Err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed", len(failed), len(results))
	}
	return nil
}
