// Package cmd implements the imgal-tool CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "imgal-tool",
	Short: "Build tool for the imgal native library",
	Long: `imgal-tool drives the imgal build: it compiles the native library through
the configured toolchain, stages the shared-library artifact next to the
compiled classes and packages everything into a distributable archive.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
