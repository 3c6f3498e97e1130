package tagsfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/model"
)

const sheet = `Album
Band
2021

One
Two//Guest//Band Member

Three
`

func track(title, disc string, artists ...string) *model.Track {
	t := model.NewTrack(title+".flac", model.FormatFLAC)
	t.Tags["album"] = []string{"Album"}
	t.Tags["albumartist"] = []string{"Band"}
	t.Tags["date"] = []string{"2021"}
	t.Tags["title"] = []string{title}
	t.Tags["discnumber"] = []string{disc}
	if len(artists) > 0 {
		t.Tags["artist"] = artists
	}
	return t
}

func TestRead(t *testing.T) {
	album, err := Read(strings.NewReader(sheet))
	require.NoError(t, err)
	assert.Equal(t, "Album", album.Album)
	assert.Equal(t, "Band", album.AlbumArtist)
	assert.Equal(t, "2021", album.Date)
	require.Len(t, album.Discs, 2)
	assert.Equal(t, []Entry{{Title: "One", Artists: []string{}}, {Title: "Two", Artists: []string{"Guest", "Band Member"}}}, album.Discs[0])
	assert.Len(t, album.Tracks(), 3)
}

func TestReadRejectsMissingBlankLine(t *testing.T) {
	_, err := Read(strings.NewReader("Album\nBand\n2021\nOne\n"))
	assert.Error(t, err)
}

func TestLedgers(t *testing.T) {
	album, err := Read(strings.NewReader(sheet))
	require.NoError(t, err)
	ledgers := album.Ledgers(model.FormatFLAC)
	require.Len(t, ledgers, 3)

	values := map[string][]string{}
	for _, c := range ledgers[1].Changes() {
		if set, ok := c.(ledger.SetRaw); ok {
			values[set.Tag] = set.Values
		}
	}
	assert.Equal(t, []string{"2/2"}, values["tracknumber"])
	assert.Equal(t, []string{"1/2"}, values["discnumber"])
	assert.Equal(t, []string{"Guest", "Band Member"}, values["artist"])

	for _, c := range ledgers[2].Changes() {
		if set, ok := c.(ledger.SetRaw); ok && set.Tag == "artist" {
			assert.Equal(t, []string{"Band"}, set.Values)
		}
	}
}

func TestWriteFromTracks(t *testing.T) {
	tracks := []*model.Track{
		track("One", "1/2", "Band"),
		track("Two", "1/2", "Guest", "Band Member"),
		track("Three", "2/2"),
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FromTracks(tracks)))
	assert.Equal(t, sheet, buf.String())
}

func TestInconsistentDiscsStayOneDisc(t *testing.T) {
	album := FromTracks([]*model.Track{track("A", "3"), track("B", "1")})
	assert.Len(t, album.Discs, 1)
}

func TestFolderImage(t *testing.T) {
	dir := t.TempDir()
	picture, err := ReadImage(dir)
	require.NoError(t, err)
	assert.Nil(t, picture)

	path, err := WriteImage(dir, model.Image{MIME: "image/png", Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Folder.png"), path)

	picture, err = ReadImage(dir)
	require.NoError(t, err)
	require.NotNil(t, picture)
	assert.Equal(t, model.KindCoverFront, picture.Kind)
	assert.Equal(t, "image/png", picture.MIME)
	assert.Equal(t, []byte("png"), picture.Data)

	path, err = WriteImage(dir, model.Image{MIME: "image/bmp"})
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestWriteFileAndReadFile(t *testing.T) {
	dir := t.TempDir()
	album := &Album{Album: "A", AlbumArtist: "B", Date: "2000", Discs: [][]Entry{{{Title: "T"}}}}
	require.NoError(t, WriteFile(dir, album))
	_, err := os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)

	got, err := ReadFile(dir)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Discs[0][0].Title)
}
