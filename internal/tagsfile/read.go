// Package tagsfile reads and writes the album sheet: a plain text file
// named "tags" holding album, album artist and date on the first three
// lines, a blank line, then one line per track with discs separated by
// blank lines. A track line is the title followed by "//artist" for every
// artist that differs from the album artist.
package tagsfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/tagkey"
)

// FileName is the sheet's name inside an album directory.
const FileName = "tags"

const artistSeparator = "//"

type Entry struct {
	Title   string
	Artists []string
}

type Album struct {
	Album       string
	AlbumArtist string
	Date        string
	Discs       [][]Entry
}

// Tracks returns the entries of every disc in order.
func (a *Album) Tracks() []Entry {
	var entries []Entry
	for _, disc := range a.Discs {
		entries = append(entries, disc...)
	}
	return entries
}

func ReadFile(dir string) (*Album, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		return nil, &model.IOError{Op: "open", Path: filepath.Join(dir, FileName), Err: err}
	}
	defer f.Close()
	return Read(f)
}

func Read(r io.Reader) (*Album, error) {
	scanner := bufio.NewScanner(r)
	album := &Album{}

	header := []*string{&album.Album, &album.AlbumArtist, &album.Date}
	for _, field := range header {
		if !scanner.Scan() {
			return album, scanner.Err()
		}
		*field = scanner.Text()
	}
	if scanner.Scan() && scanner.Text() != "" {
		return nil, errors.New("line 4 of the tags sheet must be blank")
	}

	newDisc := true
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			newDisc = true
			continue
		}
		if newDisc {
			newDisc = false
			album.Discs = append(album.Discs, nil)
		}
		tokens := strings.Split(line, artistSeparator)
		last := len(album.Discs) - 1
		album.Discs[last] = append(album.Discs[last], Entry{Title: tokens[0], Artists: tokens[1:]})
	}
	return album, scanner.Err()
}

// Ledgers returns one ledger per track in sheet order, each setting the
// album fields, title, artists and track and disc numbering. A track with
// no artists of its own gets the album artist.
func (a *Album) Ledgers(format model.Format) []*ledger.Ledger {
	var ledgers []*ledger.Ledger
	for i, disc := range a.Discs {
		for j, entry := range disc {
			artists := entry.Artists
			if len(artists) == 0 && a.AlbumArtist != "" {
				artists = []string{a.AlbumArtist}
			}
			l := ledger.New(format)
			l.Add(ledger.SetRaw{Tag: tagkey.Album, Values: []string{a.Album}})
			l.Add(ledger.SetRaw{Tag: tagkey.AlbumArtist, Values: []string{a.AlbumArtist}})
			l.Add(ledger.SetRaw{Tag: tagkey.Date, Values: []string{a.Date}})
			l.Add(ledger.SetRaw{Tag: tagkey.Title, Values: []string{entry.Title}})
			l.Add(ledger.SetRaw{Tag: tagkey.Artist, Values: artists})
			l.Add(ledger.SetRaw{Tag: tagkey.TrackNumber, Values: []string{fmt.Sprintf("%d/%d", j+1, len(disc))}})
			l.Add(ledger.SetRaw{Tag: tagkey.DiscNumber, Values: []string{fmt.Sprintf("%d/%d", i+1, len(a.Discs))}})
			ledgers = append(ledgers, l)
		}
	}
	return ledgers
}

var imageExtensions = []struct {
	ext  string
	mime string
}{
	{".jpg", "image/jpeg"},
	{".jpeg", "image/jpeg"},
	{".png", "image/png"},
}

// ReadImage loads Folder.jpg, Folder.jpeg or Folder.png from dir. It
// returns a nil change when none exists.
func ReadImage(dir string) (*ledger.AddPicture, error) {
	for _, candidate := range imageExtensions {
		path := filepath.Join(dir, "Folder"+candidate.ext)
		if stat, err := os.Stat(path); err != nil || stat.IsDir() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &model.IOError{Op: "read", Path: path, Err: err}
		}
		return &ledger.AddPicture{Kind: model.KindCoverFront, MIME: candidate.mime, Data: data}, nil
	}
	return nil, nil
}

// number parses the leading number of "n" or "n/total", or returns 0.
func number(value string) (n, total int) {
	numberText, totalText, _ := strings.Cut(value, "/")
	n, _ = strconv.Atoi(strings.TrimSpace(numberText))
	total, _ = strconv.Atoi(strings.TrimSpace(totalText))
	return n, total
}
