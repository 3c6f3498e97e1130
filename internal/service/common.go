package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/solidcopy/multitag/internal/handler"
	"github.com/solidcopy/multitag/internal/model"
)

var (
	ErrNoAudioFiles = errors.New("no audio files found")
	ErrMixedFormats = errors.New("audio files of different formats are mixed")
)

// findFiles lists the supported audio files directly inside dir, sorted
// by name.
func findFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &model.IOError{Op: "read dir", Path: dir, Err: err}
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !handler.IsAudioFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(files)
	return files, nil
}

// FindAudioFiles lists the audio files of an album directory. All of them
// must share one extension.
func FindAudioFiles(dir string) ([]string, error) {
	filePaths, err := findFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoAudioFiles)
	}

	extension := strings.ToLower(filepath.Ext(filePaths[0]))
	for _, file := range filePaths[1:] {
		if strings.ToLower(filepath.Ext(file)) != extension {
			return nil, fmt.Errorf("%s: %w", dir, ErrMixedFormats)
		}
	}
	return filePaths, nil
}

// ReadTracks decodes every audio file of dir in name order.
func (r *Runner) ReadTracks(ctx context.Context, dir string) ([]*model.Track, error) {
	filePaths, err := FindAudioFiles(dir)
	if err != nil {
		return nil, err
	}
	results := r.Open(ctx, filePaths)
	tracks := make([]*model.Track, 0, len(results))
	for _, result := range results {
		if result.Err != nil {
			return nil, fmt.Errorf("read %s: %w", result.Path, result.Err)
		}
		tracks = append(tracks, result.Track)
	}
	return tracks, nil
}
