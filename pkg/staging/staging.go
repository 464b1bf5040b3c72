// Package staging copies the platform-specific shared-library artifact from
// the toolchain output directory into the managed resources directory,
// filtering out toolchain intermediates.
package staging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rotisserie/eris"

	"github.com/elevans/imgal/pkg/buildlog"
	"github.com/elevans/imgal/pkg/platform"
)

// Rules describes one staging run.
type Rules struct {
	// Source is the toolchain output directory.
	Source string
	// Dest is the resources directory artifacts are copied into.
	Dest string
	// Include are glob patterns selecting artifacts. When empty, the
	// current platform's shared-library pattern applies.
	Include []string
	// Exclude are glob patterns removed from the selection after matching.
	Exclude []string
}

// Select resolves the file names under the source directory that the rules
// match, sorted for deterministic staging order.
func (r Rules) Select() ([]string, error) {
	include := r.Include
	if len(include) == 0 {
		variant, err := platform.Current()
		if err != nil {
			return nil, err
		}
		include = []string{variant.Pattern()}
	}

	entries, err := os.ReadDir(r.Source)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read toolchain output directory %s", r.Source)
	}

	var selected []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		matched, err := matchAny(include, name)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}

		excluded, err := matchAny(r.Exclude, name)
		if err != nil {
			return nil, err
		}
		if excluded || platform.IsIntermediate(name) {
			continue
		}

		selected = append(selected, name)
	}

	sort.Strings(selected)
	return selected, nil
}

// Stage copies every selected artifact into the destination directory and
// returns the staged file names. Zero matches is an error: it means the
// toolchain did not produce a shared library for this platform.
func Stage(ctx context.Context, rules Rules) ([]string, error) {
	selected, err := rules.Select()
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, eris.Errorf("no native artifact found in %s; build the native library or fetch a prebuilt one", rules.Source)
	}

	if err := os.MkdirAll(rules.Dest, 0o770); err != nil {
		return nil, eris.Wrapf(err, "failed to create staging directory %s", rules.Dest)
	}

	for _, name := range selected {
		src := filepath.Join(rules.Source, name)
		dst := filepath.Join(rules.Dest, name)
		if err := copyFile(src, dst); err != nil {
			return nil, eris.Wrapf(err, "failed to stage %s", name)
		}

		buildlog.Log(ctx).Info().
			Str("task", "stage").
			Msgf("staged %s", name)
	}

	return selected, nil
}

// Staged returns the artifacts already present in the destination directory,
// used by packaging when the native build was skipped.
func Staged(dest string) ([]string, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "failed to read staging directory %s", dest)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func matchAny(patterns []string, name string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return false, eris.Wrapf(err, "invalid glob pattern %s", pattern)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
