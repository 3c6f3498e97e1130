package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String() + errOut.String(), err
}

func flacFile(t *testing.T, dir string) string {
	t.Helper()
	vc := flacvorbis.New()
	vc.Comments = []string{"TITLE=Song"}
	block := vc.Marshal()
	file := &flac.File{
		Meta:   []*flac.MetaDataBlock{{Type: flac.StreamInfo, Data: make([]byte, 34)}, &block},
		Frames: []byte{0xFF, 0xF8, 0x69, 0x08},
	}
	path := filepath.Join(dir, "song.flac")
	require.NoError(t, os.WriteFile(path, file.Marshal(), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "multitag 0.")
}

func TestApplyAndShow(t *testing.T) {
	dir := t.TempDir()
	path := flacFile(t, dir)
	ledgerPath := filepath.Join(dir, "changes.json")
	require.NoError(t, os.WriteFile(ledgerPath, []byte(`[
		{"type": "setRaw", "tag": "artist", "values": ["A", "B"]},
		{"type": "remove", "tag": "title"}
	]`), 0o644))

	out, err := run(t, "apply", ledgerPath, path)
	require.NoError(t, err)
	assert.Contains(t, out, "saved (2 changes)")

	out, err = run(t, "show", path)
	require.NoError(t, err)
	assert.Contains(t, out, "artist")
	assert.NotContains(t, out, "Song")
}

func TestApplyDryRun(t *testing.T) {
	dir := t.TempDir()
	path := flacFile(t, dir)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	ledgerPath := filepath.Join(dir, "changes.json")
	require.NoError(t, os.WriteFile(ledgerPath, []byte(`[
		{"type": "setRaw", "tag": "title", "values": ["Other"]},
		{"type": "setRaw", "tag": "album", "values": ["Record"]}
	]`), 0o644))

	out, err := run(t, "apply", "--dry-run", ledgerPath, path)
	require.NoError(t, err)
	assert.Contains(t, out, "title = Other")
	assert.Contains(t, out, "album = Record")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApplyReportsFailures(t *testing.T) {
	dir := t.TempDir()
	path := flacFile(t, dir)
	ledgerPath := filepath.Join(dir, "changes.json")
	require.NoError(t, os.WriteFile(ledgerPath, []byte(`[{"type": "setPopularimeter", "popm": {"email": "a@b", "rating": 128}}]`), 0o644))

	out, err := run(t, "apply", ledgerPath, path)
	require.Error(t, err)
	assert.Contains(t, out, "UnsupportedOperation")
}

func TestInvalidConfigFails(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "multitag.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[batch]\nworkers = 0\n"), 0o644))
	_, err := run(t, "--config", cfgPath, "show", flacFile(t, dir))
	assert.Error(t, err)
}
