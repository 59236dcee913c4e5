package main

import (
	"fmt"

	"pkgbatch/internal/errors"
	"pkgbatch/internal/log"
	"pkgbatch/internal/pkgfile"
	"pkgbatch/internal/ui"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newInspectCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.pkg>...",
		Short: "Show the metadata a package is renamed from",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			styles := ui.NewStyles(out)
			row := func(key, value string) {
				fmt.Fprintf(out, "  %s %s\n", styles.Key.Render(fmt.Sprintf("%-11s", key+":")), value)
			}

			failed := 0
			for _, path := range args {
				info, err := pkgfile.ReadFile(path)
				if err != nil {
					log.LogError(err, "cannot inspect package")
					failed++
					continue
				}

				dlc := "no"
				if info.DLC {
					dlc = "yes"
				}
				fmt.Fprintln(out, styles.Label.Render(path))
				row("title", info.Title)
				row("content id", info.ContentID)
				row("region", info.Region)
				row("dlc", dlc)
				row("size", humanize.IBytes(uint64(info.Size)))
				row("new name", info.FileName())
			}

			if failed > 0 {
				return errors.NewKind(errors.InvalidPackage, "%d of %d packages could not be read", failed, len(args))
			}
			return nil
		},
	}
}
