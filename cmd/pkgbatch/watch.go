package main

import (
	"time"

	"pkgbatch/internal/log"
	"pkgbatch/internal/watch"

	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rename packages as they arrive",
		Long: `Watch runs one batch pass and then keeps watching the base directory.
Every new .pkg file is renamed once it has stopped changing for the settle
delay. Stop it with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("settle") {
				a.cfg.Watch.Settle = settle
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}

			svc, err := watch.NewService(a.cfg, a.runnerOptions(cmd)...)
			if err != nil {
				return err
			}
			if err := svc.Run(cmd.Context()); err != nil {
				return err
			}

			st := svc.Status()
			log.LogWithFields(
				log.F("directory", st.Directory),
				log.F("renamed", st.Renamed),
				log.F("failed", st.Failed),
			).Info("watch stopped")
			return nil
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", 0, "quiet period before a new file is renamed (default from config, 2s)")
	return cmd
}
