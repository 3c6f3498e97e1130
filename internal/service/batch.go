// Package service runs the persistence pipeline over many files and
// implements the album directory workflows on top of it.
package service

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/solidcopy/multitag/internal/ledger"
	"github.com/solidcopy/multitag/internal/logging"
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/persist"
)

// Job is one file to save.
type Job struct {
	Path   string
	Ledger *ledger.Ledger
}

// FileResult is the outcome of one file. Err is nil on success; a file
// skipped because the batch was cancelled carries the context error.
type FileResult struct {
	Path  string
	Track *model.Track
	Save  persist.Result
	Err   error
}

type Runner struct {
	orch    *persist.Orchestrator
	log     *slog.Logger
	workers int
	opts    model.Options
	locks   pathLocks
	// OnDone is called after each file, from the worker that ran it.
	OnDone func(FileResult)
}

func NewRunner(log *slog.Logger, workers int, opts model.Options) *Runner {
	if log == nil {
		log = logging.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		orch:    persist.New(log),
		log:     log,
		workers: workers,
		opts:    opts,
	}
}

// Open decodes every path. Results are in input order.
func (r *Runner) Open(ctx context.Context, paths []string) []FileResult {
	return r.run(ctx, paths, func(i int) FileResult {
		track, err := r.orch.Open(paths[i], r.opts)
		return FileResult{Path: paths[i], Track: track, Err: err}
	})
}

// Save runs every job. A failing file never stops the others.
func (r *Runner) Save(ctx context.Context, jobs []Job) []FileResult {
	return r.run(ctx, jobPaths(jobs), func(i int) FileResult {
		result, err := r.orch.Save(jobs[i].Path, jobs[i].Ledger, r.opts)
		return FileResult{Path: jobs[i].Path, Save: result, Err: err}
	})
}

// Preview reports what Save would do for every job without writing.
func (r *Runner) Preview(ctx context.Context, jobs []Job) []FileResult {
	return r.run(ctx, jobPaths(jobs), func(i int) FileResult {
		result, err := r.orch.Preview(jobs[i].Path, jobs[i].Ledger, r.opts)
		return FileResult{Path: jobs[i].Path, Save: result, Err: err}
	})
}

func jobPaths(jobs []Job) []string {
	paths := make([]string, len(jobs))
	for i, job := range jobs {
		paths[i] = job.Path
	}
	return paths
}

// run calls fn for each path on a bounded pool. Cancellation is checked
// before a file starts; a started file always finishes.
func (r *Runner) run(ctx context.Context, paths []string, fn func(i int) FileResult) []FileResult {
	results := make([]FileResult, len(paths))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = FileResult{Path: paths[i], Err: err}
				r.log.Debug("skipped", "path", paths[i], "reason", err)
				return nil
			}
			unlock := r.locks.lock(paths[i])
			results[i] = fn(i)
			unlock()
			r.report(results[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) report(result FileResult) {
	if result.Err != nil {
		r.log.Error("file failed", "path", result.Path, "class", model.Classify(result.Err), "error", result.Err)
	} else {
		r.log.Debug("file done", "path", result.Path, "written", result.Save.Written)
	}
	if r.OnDone != nil {
		r.OnDone(result)
	}
}

// pathLocks serializes work on the same path.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	sync.Mutex
	refs int
}

func (p *pathLocks) lock(path string) func() {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = map[string]*pathLock{}
	}
	l, ok := p.locks[path]
	if !ok {
		l = &pathLock{}
		p.locks[path] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, path)
		}
		p.mu.Unlock()
	}
}

// Failed returns the results that carry an error.
func Failed(results []FileResult) []FileResult {
	var failed []FileResult
	for _, result := range results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}
