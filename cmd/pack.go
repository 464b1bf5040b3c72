package cmd

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/elevans/imgal/pkg/buildlog"
	"github.com/elevans/imgal/pkg/jar"
	"github.com/elevans/imgal/pkg/staging"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Packages the classes and staged natives into the distributable archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := buildContext()
		m, err := resolveManifest(cmd)
		if err != nil {
			return err
		}

		stagedDir := m.Path(m.Staging.Dest)
		staged, err := staging.Staged(stagedDir)
		if err != nil {
			return err
		}
		if len(staged) == 0 {
			return eris.Errorf("no staged native artifact in %s, run stage first", stagedDir)
		}

		archive := filepath.Join(m.Path(m.Package.Output), m.ArchiveName())
		if err := mkdirForFile(archive); err != nil {
			return err
		}

		err = jar.Write(archive, jar.Manifest{
			MainClass: m.Package.MainClass,
			ClassPath: m.Package.ClassPath,
		}, []jar.Entry{
			{Source: m.Path(m.Package.Classes), Optional: true},
			{Source: stagedDir, Prefix: "natives"},
		})
		if err != nil {
			return err
		}

		buildlog.Log(ctx).Info().
			Str("task", "package").
			Msgf("wrote %s", archive)
		return nil
	},
}

func init() {
	addProfileFlags(packCmd)
	rootCmd.AddCommand(packCmd)
}
