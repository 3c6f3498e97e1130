// Package persist opens audio files into tracks and saves ledgers back to
// them. A save replaces the file atomically or leaves it untouched.
package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/solidcopy/multitag/internal/handler"
	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/logging"
	"github.com/solidcopy/multitag/internal/model"
)

// Result describes one save.
type Result struct {
	Path   string
	Format model.Format
	// Applied are the changes that altered the file. Empty when the
	// ledger cancelled out and nothing was written.
	Applied  []ledger.Change
	Written  bool
	Warnings []model.Warning
}

type Orchestrator struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Orchestrator {
	if log == nil {
		log = logging.NewNop()
	}
	return &Orchestrator{log: log}
}

var std = New(nil)

// Open decodes the tags of path with a nop logger.
func Open(path string, opts model.Options) (*model.Track, error) {
	return std.Open(path, opts)
}

// Save writes l to path with a nop logger.
func Save(path string, l *ledger.Ledger, opts model.Options) (Result, error) {
	return std.Save(path, l, opts)
}

// Preview reports what Save would apply with a nop logger.
func Preview(path string, l *ledger.Ledger, opts model.Options) (Result, error) {
	return std.Preview(path, l, opts)
}

// Open decodes the tags of path. Malformed items are reported as warnings
// on the track instead of failing the read.
func (o *Orchestrator) Open(path string, opts model.Options) (*model.Track, error) {
	h, err := handler.NewHandler(path)
	if err != nil {
		return nil, err
	}
	lock, err := acquire(path, false)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, &model.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	doc, err := load(h, f, path)
	if err != nil {
		return nil, err
	}
	track := doc.Track(path, opts)
	o.logWarnings(track)
	return track, nil
}

// Save applies the effective changes of l to path. When nothing would
// change the file is not touched. On success the ledger is cleared.
func (o *Orchestrator) Save(path string, l *ledger.Ledger, opts model.Options) (Result, error) {
	h, err := handler.NewHandler(path)
	if err != nil {
		return Result{}, err
	}
	result := Result{Path: path, Format: h.Format()}

	lock, err := acquire(path, true)
	if err != nil {
		return result, err
	}
	defer lock.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return result, &model.IOError{Op: "stat", Path: path, Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		return result, &model.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	doc, err := load(h, f, path)
	if err != nil {
		return result, err
	}
	original := doc.Track(path, opts)
	result.Warnings = original.Warnings
	o.logWarnings(original)

	changes := inFormat(l, h.Format()).Effective(original)
	if len(changes) == 0 {
		o.log.Debug("nothing to save", "path", path, "recorded", l.Len())
		l.Clear()
		return result, nil
	}
	o.log.Debug("applying changes", "path", path, "format", h.Format(), "changes", len(changes))
	if err := doc.Apply(changes, opts); err != nil {
		return result, err
	}

	if err := o.replace(path, info.Mode().Perm(), h, f, doc, opts); err != nil {
		return result, err
	}
	result.Applied = changes
	result.Written = true
	l.Clear()
	o.log.Info("saved", "path", path, "changes", len(changes))
	return result, nil
}

// Preview reports the changes Save would apply to path without writing
// anything. The changes are applied to the decoded file in memory, so a
// save that would fail fails here with the same error. The ledger is left
// as it is.
func (o *Orchestrator) Preview(path string, l *ledger.Ledger, opts model.Options) (Result, error) {
	h, err := handler.NewHandler(path)
	if err != nil {
		return Result{}, err
	}
	result := Result{Path: path, Format: h.Format()}

	lock, err := acquire(path, false)
	if err != nil {
		return result, err
	}
	defer lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return result, &model.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	doc, err := load(h, f, path)
	if err != nil {
		return result, err
	}
	original := doc.Track(path, opts)
	result.Warnings = original.Warnings

	changes := inFormat(l, h.Format()).Effective(original)
	if len(changes) == 0 {
		return result, nil
	}
	if err := doc.Apply(changes, opts); err != nil {
		return result, err
	}
	result.Applied = changes
	o.log.Debug("previewed", "path", path, "changes", len(changes))
	return result, nil
}

// inFormat returns l with its keys folded for format. A ledger recorded
// for another format is copied, never modified.
func inFormat(l *ledger.Ledger, format model.Format) *ledger.Ledger {
	if l.Format() == format {
		return l
	}
	return ledger.FromChanges(format, l.Changes())
}

// replace writes doc to a temp file next to path and renames it over path.
func (o *Orchestrator) replace(path string, mode fs.FileMode, h handler.FileHandler, src *os.File, doc handler.Document, opts model.Options) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), ".multitag-*.tmp")
	if err != nil {
		return &model.IOError{Op: "create temp file", Path: path, Err: err}
	}
	tempPath := tempFile.Name()
	o.log.Debug("writing temp file", "path", path, "temp", tempPath)

	success := false
	defer func() {
		if !success {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if err := doc.WriteTo(tempFile); err != nil {
		var formatErr *model.FormatError
		if errors.As(err, &formatErr) {
			if formatErr.Path == "" {
				formatErr.Path = path
			}
			return err
		}
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tempFile.Sync(); err != nil {
		return &model.IOError{Op: "sync", Path: tempPath, Err: err}
	}
	if opts.Verify {
		if err := verify(h, src, tempFile); err != nil {
			return fmt.Errorf("verify %s: %w", path, err)
		}
	}
	if err := tempFile.Close(); err != nil {
		return &model.IOError{Op: "close", Path: tempPath, Err: err}
	}
	if err := os.Chmod(tempPath, mode); err != nil {
		return &model.IOError{Op: "chmod", Path: tempPath, Err: err}
	}
	if err := os.Rename(tempPath, path); err != nil {
		return &model.IOError{Op: "rename", Path: path, Err: err}
	}
	success = true
	return nil
}

func load(h handler.FileHandler, f *os.File, path string) (handler.Document, error) {
	doc, err := h.Load(f)
	if err == nil {
		return doc, nil
	}
	var formatErr *model.FormatError
	if errors.As(err, &formatErr) {
		if formatErr.Path == "" {
			formatErr.Path = path
		}
		return nil, err
	}
	return nil, &model.FormatError{Path: path, Reason: "unreadable " + string(h.Format()) + " file", Err: err}
}

// acquire takes a non-blocking advisory lock on path itself, exclusive for
// writers. A missing file is reported before any lock file could be made.
func acquire(path string, exclusive bool) (*flock.Flock, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &model.IOError{Op: "stat", Path: path, Err: err}
	}
	lock := flock.New(path, flock.SetFlag(os.O_RDONLY))
	try := lock.TryRLock
	if exclusive {
		try = lock.TryLock
	}
	ok, err := try()
	if err != nil {
		return nil, &model.IOError{Op: "lock", Path: path, Err: err}
	}
	if !ok {
		return nil, &model.IOError{Op: "lock", Path: path, Err: model.ErrLocked}
	}
	return lock, nil
}

func (o *Orchestrator) logWarnings(track *model.Track) {
	for _, w := range track.Warnings {
		o.log.Warn("partial read", "path", track.Path, "stage", w.Stage, "message", w.Message)
	}
}
