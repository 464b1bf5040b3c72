package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/elevans/imgal/pkg/buildlog"
	"github.com/elevans/imgal/pkg/manifest"
	"github.com/elevans/imgal/pkg/pipeline"
	"github.com/elevans/imgal/pkg/watch"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Runs the full build: native toolchain, staging, packaging",
	RunE: func(cmd *cobra.Command, args []string) error {
		dry, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}
		watchMode, err := cmd.Flags().GetBool("watch")
		if err != nil {
			return err
		}

		ctx := buildContext()
		m, err := resolveManifest(cmd)
		if err != nil {
			return err
		}

		runOnce := func(ctx context.Context) error {
			tasks, err := loadHookTasks(ctx, m, nil)
			if err != nil {
				return err
			}

			p := pipeline.New(m, pipeline.Options{
				DryRun:    dry,
				Force:     force,
				HookTasks: tasks,
			})
			return p.Run(ctx)
		}

		if !watchMode {
			return runOnce(ctx)
		}

		if err := runOnce(ctx); err != nil {
			buildlog.Log(ctx).Error().Err(err).Msg("initial build failed")
		}

		// ignore everything the build itself writes
		ignore := []string{
			toSlashRel(m, m.Path(m.Staging.Dest)) + "/**",
			toSlashRel(m, m.Path(m.Package.Output)) + "/**",
			toSlashRel(m, m.Path(m.Native.Output)) + "/**",
		}

		w, err := watch.New(m.Root(), ignore, 0)
		if err != nil {
			return err
		}
		defer w.Close()

		buildlog.Log(ctx).Info().Msg("watching for changes, press Ctrl+C to stop")
		return w.Run(ctx, runOnce)
	},
}

func toSlashRel(m *manifest.Manifest, path string) string {
	rel, err := filepath.Rel(m.Root(), path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func init() {
	addProfileFlags(buildCmd)
	buildCmd.Flags().BoolP("dry", "n", false, "only print the commands, don't execute anything")
	buildCmd.Flags().BoolP("force", "f", false, "always run the native build even if it's up to date")
	buildCmd.Flags().BoolP("watch", "w", false, "rebuild whenever project files change")

	rootCmd.AddCommand(buildCmd)
}
