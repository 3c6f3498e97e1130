package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/tagkey"
)

// Rename names every audio file of dir after its tags as
// "[disc.]track.title.ext". The disc prefix appears on multi-disc albums.
func (r *Runner) Rename(ctx context.Context, dir string) (map[string]string, error) {
	r.log.Info("rename started", "dir", dir)
	tracks, err := r.ReadTracks(ctx, dir)
	if err != nil {
		return nil, err
	}

	renamed := map[string]string{}
	targets := map[string]string{}
	for _, track := range tracks {
		newPath := targetOf(dir, track)
		if prev, ok := targets[newPath]; ok {
			return nil, fmt.Errorf("%s and %s would both be renamed to %s", prev, track.Path, filepath.Base(newPath))
		}
		targets[newPath] = track.Path
	}
	// Move through temporary names first so one track can take the old
	// name of another.
	var pending []*model.Track
	for _, track := range tracks {
		if targetOf(dir, track) == track.Path {
			continue
		}
		temp := track.Path + ".multitag-rename"
		if err := os.Rename(track.Path, temp); err != nil {
			return renamed, &model.IOError{Op: "rename", Path: track.Path, Err: err}
		}
		pending = append(pending, track)
	}
	for _, track := range pending {
		newPath := targetOf(dir, track)
		if _, err := os.Stat(newPath); err == nil {
			return renamed, &model.IOError{Op: "rename", Path: track.Path, Err: os.ErrExist}
		}
		if err := os.Rename(track.Path+".multitag-rename", newPath); err != nil {
			return renamed, &model.IOError{Op: "rename", Path: track.Path, Err: err}
		}
		renamed[track.Path] = newPath
		r.log.Debug("renamed", "from", track.Path, "to", newPath)
	}
	r.log.Info("rename finished", "dir", dir, "renamed", len(renamed))
	return renamed, nil
}

func targetOf(dir string, track *model.Track) string {
	return filepath.Join(dir, determineNewBaseName(track)+filepath.Ext(track.Path))
}

var charReplacer = strings.NewReplacer(
	"*", "-",
	"\\", "",
	"|", "",
	":", "",
	"\"", "",
	"<", "(",
	">", ")",
	"/", "",
	"?", "",
)

func determineNewBaseName(track *model.Track) string {
	newBaseName := new(strings.Builder)

	disc, totalDiscs := numberPair(track.First(tagkey.DiscNumber))
	if totalDiscs > 1 {
		newBaseName.WriteString(padded(disc, totalDiscs))
		newBaseName.WriteRune('.')
	}

	trackNumber, totalTracks := numberPair(track.First(tagkey.TrackNumber))
	newBaseName.WriteString(padded(trackNumber, max(totalTracks, 10)))
	newBaseName.WriteRune('.')

	newBaseName.WriteString(charReplacer.Replace(track.First(tagkey.Title)))
	return newBaseName.String()
}

// padded zero-pads n to the width of total.
func padded(n, total int) string {
	width := len(strconv.Itoa(total))
	return fmt.Sprintf("%0*d", width, n)
}

func numberPair(value string) (n, total int) {
	numberText, totalText, _ := strings.Cut(value, "/")
	n, _ = strconv.Atoi(strings.TrimSpace(numberText))
	total, _ = strconv.Atoi(strings.TrimSpace(totalText))
	return n, total
}
