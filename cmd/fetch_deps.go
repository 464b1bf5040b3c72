package cmd

import (
	"github.com/spf13/cobra"

	"github.com/elevans/imgal/pkg/fetch"
)

var fetchDepsCmd = &cobra.Command{
	Use:   "fetch-deps",
	Short: "Downloads and unpacks the prebuilt dependencies listed in DEPS.yml",
	RunE: func(cmd *cobra.Command, args []string) error {
		update, err := cmd.Flags().GetBool("update")
		if err != nil {
			return err
		}

		ctx := buildContext()
		m, err := resolveManifest(cmd)
		if err != nil {
			return err
		}

		return fetch.Run(ctx, m.Root(), fetch.Options{
			Update:     update,
			ConfigFile: m.Deps,
		})
	},
}

func init() {
	addProfileFlags(fetchDepsCmd)
	fetchDepsCmd.Flags().BoolP("update", "u", false, "update the recorded checksums")
	rootCmd.AddCommand(fetchDepsCmd)
}
