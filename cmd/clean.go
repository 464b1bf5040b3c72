package cmd

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/elevans/imgal/pkg/buildlog"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Removes the staging directory and the packaged archives",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := buildContext()
		m, err := resolveManifest(cmd)
		if err != nil {
			return err
		}

		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return err
		}

		targets := []string{
			m.Path(m.Staging.Dest),
			m.Path(m.Package.Output),
			m.Path(hookCacheFile),
		}
		if all {
			targets = append(targets, m.Path(m.Native.Output))
		}

		for _, target := range targets {
			if _, err := os.Stat(target); eris.Is(err, os.ErrNotExist) {
				continue
			}

			buildlog.Log(ctx).Info().
				Str("task", "clean").
				Msgf("removing %s", target)
			if err := os.RemoveAll(target); err != nil {
				return eris.Wrapf(err, "failed to remove %s", target)
			}
		}
		return nil
	},
}

// mkdirForFile creates the parent directory of the given file path.
func mkdirForFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o770); err != nil {
		return eris.Wrapf(err, "failed to create directory for %s", path)
	}
	return nil
}

func init() {
	addProfileFlags(cleanCmd)
	cleanCmd.Flags().Bool("all", false, "also remove the toolchain output directory")
	rootCmd.AddCommand(cleanCmd)
}
