package main

import (
	"pkgbatch/internal/batch"
	"pkgbatch/internal/config"
	"pkgbatch/internal/log"
	"pkgbatch/internal/ui"

	"github.com/spf13/cobra"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	dir     string
	tool    string
	debug   bool

	cfg *config.Config
}

// NewRootCmd creates the root command. Run without a subcommand it
// performs one batch pass over the base directory.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pkgbatch",
		Short: "Rename every .pkg file in a directory",
		Long: `pkgbatch runs the renaming tool once for every .pkg file directly inside
the base directory, one file at a time. A file the tool fails on is
reported and skipped; the pass always continues with the next file.`,
		Version:           version,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := batch.New(a.cfg, a.runnerOptions(cmd)...)
			if err != nil {
				return err
			}
			_, err = runner.RunBatch(cmd.Context(), "")
			return err
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/pkgbatch/config.yaml)")
	flags.StringVarP(&a.dir, "dir", "d", "", "directory to scan (default is the current directory)")
	flags.StringVar(&a.tool, "tool", "", "renaming tool to run for each file (default \""+config.DefaultTool+"\")")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newInspectCmd(a))

	return rootCmd
}

// setup loads the configuration and applies command line overrides.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var err error
	if a.cfgFile != "" {
		a.cfg, err = config.LoadConfigFile(a.cfgFile)
		if err != nil {
			return err
		}
	} else {
		a.cfg, err = config.LoadConfig()
		if err != nil {
			log.LogError(err, "cannot load configuration, using defaults")
			a.cfg = config.New()
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dir") {
		a.cfg.Directories.Base = a.dir
	}
	if flags.Changed("tool") {
		a.cfg.Batch.Tool = a.tool
	}
	if flags.Changed("debug") {
		a.cfg.Settings.Debug = a.debug
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	if a.cfg.Settings.LogFile != "" {
		log.Configure(log.WithOutput(cmd.ErrOrStderr()), log.WithFile(a.cfg.Settings.LogFile))
	} else {
		log.SetOutput(cmd.ErrOrStderr())
	}
	log.SetDebug(a.cfg.Settings.Debug)
	log.LogWithFields(
		log.F("directory", a.cfg.BaseDirectory()),
		log.F("tool", a.cfg.Batch.Tool),
	).Debug("configuration loaded")
	return nil
}

// runnerOptions routes diagnostics and the tool's own output through the
// command's writers.
func (a *app) runnerOptions(cmd *cobra.Command) []batch.Option {
	inv := batch.NewExecInvoker(a.cfg.Batch.Tool)
	inv.Stdout = cmd.OutOrStdout()
	inv.Stderr = cmd.ErrOrStderr()
	return []batch.Option{
		batch.WithInvoker(inv),
		batch.WithNotifier(ui.NewTextNotifier(cmd.OutOrStdout(), a.cfg.Batch.Tool)),
	}
}
