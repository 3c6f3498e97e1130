package main

import (
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/solidcopy/multitag/internal/service"
)

// attachProgress shows a progress bar on an interactive stderr while the
// runner works through total files. The returned func finishes the bar.
func attachProgress(runner *service.Runner, total int, description string) func() {
	if total < 2 || !shouldColorize(os.Stderr) {
		return func() {}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	runner.OnDone = func(service.FileResult) {
		_ = bar.Add(1)
	}
	return func() {
		_ = bar.Finish()
	}
}
