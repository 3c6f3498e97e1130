package service

import (
	"context"
	"fmt"

	"github.com/solidcopy/multitag/internal/handler"
	"github.com/solidcopy/multitag/internal/tagsfile"
)

// Import saves the tags sheet of dir into its audio files, matched in name
// order, together with the folder image as front cover.
func (r *Runner) Import(ctx context.Context, dir string) ([]FileResult, error) {
	r.log.Info("import started", "dir", dir)
	filePaths, err := FindAudioFiles(dir)
	if err != nil {
		return nil, err
	}
	album, err := tagsfile.ReadFile(dir)
	if err != nil {
		return nil, err
	}
	h, err := handler.NewHandler(filePaths[0])
	if err != nil {
		return nil, err
	}
	ledgers := album.Ledgers(h.Format())
	if len(filePaths) != len(ledgers) {
		return nil, fmt.Errorf("%s: %d audio files but %d tracks in the tags sheet", dir, len(filePaths), len(ledgers))
	}
	cover, err := tagsfile.ReadImage(dir)
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, len(filePaths))
	for i, path := range filePaths {
		if cover != nil {
			ledgers[i].Add(*cover)
		}
		jobs[i] = Job{Path: path, Ledger: ledgers[i]}
	}
	results := r.Save(ctx, jobs)
	r.log.Info("import finished", "dir", dir, "files", len(results), "failed", len(Failed(results)))
	return results, nil
}
