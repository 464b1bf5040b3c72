package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/elevans/imgal/pkg/buildlog"
	"github.com/elevans/imgal/pkg/hooks"
	"github.com/elevans/imgal/pkg/manifest"
)

// buildContext returns a context carrying the console logger.
func buildContext() context.Context {
	logger := zerolog.New(NewConsoleWriter())
	if os.Getenv("IMGAL_DEBUG") != "" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	return buildlog.WithLogger(context.Background(), &logger)
}

// findManifest walks up from the working directory until it finds the
// project manifest.
func findManifest() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", eris.Wrap(err, "failed to retrieve the current working directory")
	}

	path := wd
	for {
		candidate := filepath.Join(path, manifest.DefaultFileName)
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "failed to check %s", candidate)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", eris.Errorf("no %s found in %s or any parent directory", manifest.DefaultFileName, wd)
		}
		path = parent
	}
}

// resolveManifest loads the manifest and applies the profile and property
// flags shared by the build phase commands.
func resolveManifest(cmd *cobra.Command) (*manifest.Manifest, error) {
	path, err := findManifest()
	if err != nil {
		return nil, err
	}

	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}

	profileName, err := cmd.Flags().GetString("profile")
	if err != nil {
		return nil, err
	}

	profile, err := m.ActiveProfile(profileName)
	if err != nil {
		return nil, err
	}

	extra := map[string]string{}
	if props, err := cmd.Flags().GetStringArray("property"); err == nil {
		for _, prop := range props {
			pos := strings.Index(prop, "=")
			if pos < 1 {
				return nil, eris.Errorf("property %s is not of the form key=value", prop)
			}
			extra[prop[:pos]] = prop[pos+1:]
		}
	}

	if skip, err := cmd.Flags().GetBool("skip-native"); err == nil && skip {
		extra["native.skip"] = "true"
	}

	return m.Resolve(profile, extra)
}

// addProfileFlags registers the flags understood by resolveManifest.
func addProfileFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("profile", "P", "", "select a manifest profile by name")
	cmd.Flags().StringArrayP("property", "D", nil, "override a manifest property (key=value)")
	cmd.Flags().Bool("skip-native", false, "skip the native toolchain build")
}

// hookCacheFile is where the configured hook tasks are cached between runs.
const hookCacheFile = "build/hooks.cache"

// loadHookTasks evaluates the project's hook script if one exists. The
// configure results are cached, a run with the same options reuses them.
func loadHookTasks(ctx context.Context, m *manifest.Manifest, options map[string]string) (hooks.TaskSet, error) {
	scriptName := m.Hooks
	if scriptName == "" {
		scriptName = hooks.DefaultFileName
	}

	script := m.Path(scriptName)
	if _, err := os.Stat(script); eris.Is(err, os.ErrNotExist) {
		if m.Hooks != "" {
			return nil, eris.Errorf("hook script %s does not exist", script)
		}
		return nil, nil
	}

	cachePath := m.Path(hookCacheFile)
	scriptInfo, err := os.Stat(script)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to check %s", script)
	}

	if cacheInfo, err := os.Stat(cachePath); err == nil && cacheInfo.ModTime().After(scriptInfo.ModTime()) {
		if tasks, err := hooks.ReadCache(cachePath, options); err == nil {
			buildlog.Log(ctx).Debug().Msg("using cached hook tasks")
			return tasks, nil
		}
	}

	tasks, _, err := hooks.RunScript(ctx, script, m.Root(), options, true)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0o770); err == nil {
		if err := hooks.WriteCache(cachePath, options, tasks); err != nil {
			buildlog.Log(ctx).Warn().Err(err).Msg("failed to write hook cache")
		}
	}

	return tasks, nil
}
