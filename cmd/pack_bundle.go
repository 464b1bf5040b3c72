package cmd

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/elevans/imgal/pkg/buildlog"
	"github.com/elevans/imgal/pkg/bundle"
	"github.com/elevans/imgal/pkg/staging"
)

var packBundleCmd = &cobra.Command{
	Use:   "pack-bundle",
	Short: "Packs the staged natives into an .ipk bundle",
	Long: `Packs the staged native artifacts into a compressed .ipk bundle. The
bundle can be published and later pulled in through fetch-deps on machines
that skip the native build.`,
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

		output, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		if output == "" {
			name := strings.TrimSuffix(m.ArchiveName(), ".jar") + ".ipk"
			output = filepath.Join(m.Path(m.Package.Output), name)
		}
		if err := mkdirForFile(output); err != nil {
			return err
		}

		writer, err := bundle.NewWriter(output)
		if err != nil {
			return err
		}
		if err := writer.AddTree(stagedDir); err != nil {
			writer.Close()
			return err
		}
		if err := writer.Close(); err != nil {
			return err
		}

		buildlog.Log(ctx).Info().
			Str("task", "pack-bundle").
			Msgf("wrote %s", output)
		return nil
	},
}

func init() {
	addProfileFlags(packBundleCmd)
	packBundleCmd.Flags().StringP("output", "o", "", "bundle file to write (defaults to the package output directory)")
	rootCmd.AddCommand(packBundleCmd)
}
