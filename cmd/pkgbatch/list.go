package main

import (
	"fmt"

	"pkgbatch/internal/scan"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [directory]",
		Short: "List the files a batch pass would rename",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.BaseDirectory()
			if len(args) > 0 {
				dir = args[0]
			}

			s, err := scan.NewWithConfig(a.cfg)
			if err != nil {
				return err
			}
			names, err := s.ListMatchingFiles(dir)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
