// Command renamepkg renames one PlayStation Vita package to
// "Title [ID] [REGION].pkg" using the metadata stored inside it.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"pkgbatch/internal/errors"
	"pkgbatch/internal/log"
	"pkgbatch/internal/pkgfile"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
)

func newRootCmd() *cobra.Command {
	var (
		dryRun bool
		debug  bool
	)

	cmd := &cobra.Command{
		Use:     "renamepkg <file.pkg>",
		Short:   "Rename a package after its title, id and region",
		Version: version,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.NewKind(errors.InvalidArgument, "usage: %s", cmd.UseLine())
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.SetOutput(cmd.ErrOrStderr())
			log.SetDebug(debug)

			dest, err := pkgfile.Rename(args[0], dryRun)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), filepath.Base(dest))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the new name without renaming")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
