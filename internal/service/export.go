package service

import (
	"context"

	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/tagsfile"
)

// Export writes the tags sheet of dir and, when the first track has a
// front cover, the folder image.
func (r *Runner) Export(ctx context.Context, dir string) error {
	r.log.Info("export started", "dir", dir)
	tracks, err := r.ReadTracks(ctx, dir)
	if err != nil {
		return err
	}
	if err := tagsfile.WriteFile(dir, tagsfile.FromTracks(tracks)); err != nil {
		return err
	}
	if cover, ok := tracks[0].Image(model.KindCoverFront); ok {
		path, err := tagsfile.WriteImage(dir, cover)
		if err != nil {
			return err
		}
		if path != "" {
			r.log.Debug("folder image written", "path", path)
		}
	}
	r.log.Info("export finished", "dir", dir, "tracks", len(tracks))
	return nil
}
