package tagsfile

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/tagkey"
)

// FromTracks builds a sheet from decoded tracks in file order. The album
// fields come from the first track. Tracks start a new disc when their
// disc number moves on by one; any other numbering keeps a single disc.
func FromTracks(tracks []*model.Track) *Album {
	album := &Album{}
	if len(tracks) == 0 {
		return album
	}
	first := tracks[0]
	album.Album = first.First(tagkey.Album)
	album.AlbumArtist = first.First(tagkey.AlbumArtist)
	album.Date = first.First(tagkey.Date)

	splitDiscs := isDiscNumberConsistent(tracks)
	current := 0
	for _, track := range tracks {
		disc, _ := number(track.First(tagkey.DiscNumber))
		if len(album.Discs) == 0 || (splitDiscs && disc != current) {
			album.Discs = append(album.Discs, nil)
			current = disc
		}
		artists := slices.DeleteFunc(slices.Clone(track.Values(tagkey.Artist)), func(a string) bool {
			return a == "" || a == album.AlbumArtist
		})
		last := len(album.Discs) - 1
		album.Discs[last] = append(album.Discs[last], Entry{Title: track.First(tagkey.Title), Artists: artists})
	}
	return album
}

func isDiscNumberConsistent(tracks []*model.Track) bool {
	current, _ := number(tracks[0].First(tagkey.DiscNumber))
	if current > 1 {
		return false
	}
	for _, track := range tracks {
		disc, _ := number(track.First(tagkey.DiscNumber))
		if disc != current && disc != current+1 {
			return false
		}
		current = disc
	}
	return true
}

func Write(w io.Writer, album *Album) error {
	bw := bufio.NewWriter(w)
	for _, line := range []string{album.Album, album.AlbumArtist, album.Date, ""} {
		bw.WriteString(line)
		bw.WriteByte('\n')
	}
	for i, disc := range album.Discs {
		if i > 0 {
			bw.WriteByte('\n')
		}
		for _, entry := range disc {
			bw.WriteString(entry.Title)
			if len(entry.Artists) > 0 {
				bw.WriteString(artistSeparator)
				bw.WriteString(strings.Join(entry.Artists, artistSeparator))
			}
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

func WriteFile(dir string, album *Album) error {
	path := filepath.Join(dir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return &model.IOError{Op: "create", Path: path, Err: err}
	}
	if err := Write(f, album); err != nil {
		f.Close()
		return &model.IOError{Op: "write", Path: path, Err: err}
	}
	return f.Close()
}

// WriteImage saves image as Folder.<ext> in dir. It returns the written
// path, or "" when the MIME type has no folder image name.
func WriteImage(dir string, image model.Image) (string, error) {
	var name string
	switch image.MIME {
	case "image/jpeg", "image/jpg":
		name = "Folder.jpg"
	case "image/png":
		name = "Folder.png"
	case "image/gif":
		name = "Folder.gif"
	default:
		return "", nil
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, image.Data, 0o644); err != nil {
		return "", &model.IOError{Op: "write", Path: path, Err: err}
	}
	return path, nil
}
