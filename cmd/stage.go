package cmd

import (
	"github.com/spf13/cobra"

	"github.com/elevans/imgal/pkg/staging"
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Copies the native artifact into the staging directory",
	Long: `Selects the platform's shared-library artifact from the toolchain output
directory and copies it into the staging directory, leaving toolchain
intermediates behind.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := buildContext()
		m, err := resolveManifest(cmd)
		if err != nil {
			return err
		}

		_, err = staging.Stage(ctx, staging.Rules{
			Source:  m.Path(m.Native.Output),
			Dest:    m.Path(m.Staging.Dest),
			Include: m.Staging.Include,
			Exclude: m.Staging.Exclude,
		})
		return err
	},
}

func init() {
	addProfileFlags(stageCmd)
	rootCmd.AddCommand(stageCmd)
}
