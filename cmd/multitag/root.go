package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/solidcopy/multitag/internal/config"
	"github.com/solidcopy/multitag/internal/logging"
	"github.com/solidcopy/multitag/internal/model"
	"github.com/solidcopy/multitag/internal/service"
)

type flags struct {
	config   string
	id3v23   bool
	workers  int
	logLevel string
	verify   bool
}

// commandContext resolves configuration once per invocation.
type commandContext struct {
	flags  *flags
	cfg    *config.Config
	logger *slog.Logger
}

func (c *commandContext) ensureConfig() error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := config.Load(c.flags.config)
	if err != nil {
		return err
	}
	if c.flags.id3v23 {
		cfg.ID3.V24 = false
	}
	if c.flags.workers > 0 {
		cfg.Batch.Workers = c.flags.workers
	}
	if c.flags.verify {
		cfg.Batch.Verify = true
	}
	if c.flags.logLevel != "" {
		cfg.Logging.Level = c.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}
	c.cfg = &cfg
	c.logger = logger
	return nil
}

func (c *commandContext) options() model.Options {
	return c.cfg.Options()
}

func (c *commandContext) runner() *service.Runner {
	return service.NewRunner(c.logger, c.cfg.Batch.Workers, c.options())
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{flags: &flags{}}

	rootCmd := &cobra.Command{
		Use:           "multitag",
		Short:         "Read and edit tags of MP3, FLAC, Ogg and MP4 audio files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return ctx.ensureConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&ctx.flags.config, "config", "c", "", "Configuration file path")
	pf.BoolVar(&ctx.flags.id3v23, "id3v23", false, "Write ID3v2.3 instead of ID3v2.4")
	pf.IntVarP(&ctx.flags.workers, "workers", "w", 0, "Number of files processed in parallel")
	pf.StringVar(&ctx.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVar(&ctx.flags.verify, "verify", false, "Re-read every written file before it replaces the original")

	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newApplyCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newRenameCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}
