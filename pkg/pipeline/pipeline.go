// Package pipeline runs the build phases in their fixed order: the native
// toolchain build, then staging the shared-library artifact, then packaging
// the distributable archive. Phases never run concurrently and a failing
// phase aborts the run.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/elevans/imgal/pkg/buildlog"
	"github.com/elevans/imgal/pkg/hooks"
	"github.com/elevans/imgal/pkg/jar"
	"github.com/elevans/imgal/pkg/manifest"
	"github.com/elevans/imgal/pkg/platform"
	"github.com/elevans/imgal/pkg/staging"
)

// Phase names in execution order.
const (
	PhaseNativeBuild = "native-build"
	PhaseStage       = "stage"
	PhasePackage     = "package"
)

// Options control a single pipeline run.
type Options struct {
	// DryRun logs each phase's work without touching the filesystem.
	DryRun bool
	// Force disables the native up-to-date check.
	Force bool
	// HookTasks are the configured tasks from the project's hook script,
	// may be nil. Tasks named "pre:<phase>" or "post:<phase>" run around
	// the matching phase.
	HookTasks hooks.TaskSet
}

// Pipeline executes the build phases for one resolved manifest.
type Pipeline struct {
	Manifest *manifest.Manifest
	Opts     Options

	// Ran lists the phases that actually executed, in order. Skipped and
	// elided phases are not recorded.
	Ran []string
}

// New returns a pipeline for the given resolved manifest.
func New(m *manifest.Manifest, opts Options) *Pipeline {
	return &Pipeline{Manifest: m, Opts: opts}
}

// Run executes all phases in order.
func (p *Pipeline) Run(ctx context.Context) error {
	for _, phase := range []struct {
		name string
		run  func(context.Context) (bool, error)
	}{
		{PhaseNativeBuild, p.nativeBuild},
		{PhaseStage, p.stage},
		{PhasePackage, p.pack},
	} {
		if err := p.runHook(ctx, "pre:"+phase.name); err != nil {
			return err
		}

		executed, err := phase.run(ctx)
		if err != nil {
			return eris.Wrapf(err, "phase %s failed", phase.name)
		}
		if executed {
			p.Ran = append(p.Ran, phase.name)
		}

		if err := p.runHook(ctx, "post:"+phase.name); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runHook(ctx context.Context, name string) error {
	if p.Opts.HookTasks == nil {
		return nil
	}
	if _, ok := p.Opts.HookTasks[name]; !ok {
		return nil
	}

	buildlog.Log(ctx).Info().Str("hook", name).Msg("running hook task")
	return hooks.RunTask(ctx, name, p.Opts.HookTasks, p.Opts.DryRun, p.Opts.Force)
}

// nativeBuild runs the manifest's toolchain command unless the skip toggle
// is set or the artifact is already up to date.
func (p *Pipeline) nativeBuild(ctx context.Context) (bool, error) {
	m := p.Manifest

	if m.Native.Skip {
		buildlog.Log(ctx).Info().
			Str("task", PhaseNativeBuild).
			Msg("skipped (native.skip is set)")
		return false, nil
	}

	if !p.Opts.Force {
		upToDate, err := p.artifactUpToDate(ctx)
		if err != nil {
			return false, err
		}
		if upToDate {
			return false, nil
		}
	}

	parser := syntax.NewParser()
	prog, err := parser.Parse(strings.NewReader(m.Native.Build), "native.build")
	if err != nil {
		return false, eris.Wrapf(err, "failed to parse toolchain command %s", m.Native.Build)
	}

	buildDir := m.Path(m.Native.Dir)
	buildlog.Log(ctx).Info().
		Str("task", PhaseNativeBuild).
		Str("dir", buildDir).
		Msg(m.Native.Build)

	if p.Opts.DryRun {
		return true, nil
	}

	runner, err := interp.New(
		interp.Dir(buildDir),
		interp.StdIO(nil, os.Stdout, os.Stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return false, eris.Wrap(err, "failed to initialize runner")
	}

	// a non-zero exit from the toolchain aborts the build
	if err := runner.Run(ctx, prog); err != nil {
		return false, eris.Wrapf(err, "toolchain command failed")
	}
	return true, nil
}

// artifactUpToDate compares the platform artifact in the toolchain output
// directory against the newest configured input. Without inputs the build
// always runs.
func (p *Pipeline) artifactUpToDate(ctx context.Context) (bool, error) {
	m := p.Manifest
	if len(m.Native.Inputs) == 0 {
		return false, nil
	}

	variant, err := platform.Current()
	if err != nil {
		return false, err
	}

	artifact := filepath.Join(m.Path(m.Native.Output), variant.FileName(m.Native.Library))
	info, err := os.Stat(artifact)
	if eris.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "failed to check artifact %s", artifact)
	}
	artifactTime := info.ModTime()

	var newestInput time.Time
	for _, pattern := range m.Native.Inputs {
		matches, err := doublestar.FilepathGlob(filepath.ToSlash(m.Path(pattern)))
		if err != nil {
			return false, eris.Wrapf(err, "failed to resolve input pattern %s", pattern)
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return false, eris.Wrapf(err, "failed to check input %s", match)
			}
			if info.ModTime().After(newestInput) {
				newestInput = info.ModTime()
			}
		}
	}

	if !newestInput.IsZero() && artifactTime.After(newestInput) {
		buildlog.Log(ctx).Info().
			Str("task", PhaseNativeBuild).
			Msgf("nothing to do (artifact is %f seconds newer)", artifactTime.Sub(newestInput).Seconds())
		return true, nil
	}
	return false, nil
}

// stage copies the platform artifact from the toolchain output directory
// into the staging destination.
func (p *Pipeline) stage(ctx context.Context) (bool, error) {
	m := p.Manifest
	rules := staging.Rules{
		Source:  m.Path(m.Native.Output),
		Dest:    m.Path(m.Staging.Dest),
		Include: m.Staging.Include,
		Exclude: m.Staging.Exclude,
	}

	if p.Opts.DryRun {
		selected, err := rules.Select()
		if err != nil {
			// a fresh checkout has no toolchain output directory yet
			if !eris.Is(err, os.ErrNotExist) {
				return false, err
			}
			selected = nil
		}
		if len(selected) == 0 {
			buildlog.Log(ctx).Info().
				Str("task", PhaseStage).
				Msg("would stage nothing")
			return true, nil
		}
		for _, name := range selected {
			buildlog.Log(ctx).Info().
				Str("task", PhaseStage).
				Msgf("would stage %s", name)
		}
		return true, nil
	}

	if _, err := staging.Stage(ctx, rules); err != nil {
		return false, err
	}
	return true, nil
}

// pack builds the distributable archive from the compiled classes and the
// staged natives. It fails when nothing has ever been staged, but a staged
// artifact from an earlier run is enough even when this run skipped the
// native build.
func (p *Pipeline) pack(ctx context.Context) (bool, error) {
	m := p.Manifest

	stagedDir := m.Path(m.Staging.Dest)
	archive := filepath.Join(m.Path(m.Package.Output), m.ArchiveName())

	if p.Opts.DryRun {
		buildlog.Log(ctx).Info().
			Str("task", PhasePackage).
			Msgf("would write %s", archive)
		return true, nil
	}

	staged, err := staging.Staged(stagedDir)
	if err != nil {
		return false, err
	}
	if len(staged) == 0 {
		return false, eris.Errorf("no staged native artifact in %s, run the stage phase first", stagedDir)
	}

	if err := os.MkdirAll(filepath.Dir(archive), 0o770); err != nil {
		return false, eris.Wrapf(err, "failed to create output directory")
	}

	entries := []jar.Entry{
		{Source: m.Path(m.Package.Classes), Optional: true},
		{Source: stagedDir, Prefix: "natives"},
	}

	err = jar.Write(archive, jar.Manifest{
		MainClass: m.Package.MainClass,
		ClassPath: m.Package.ClassPath,
	}, entries)
	if err != nil {
		return false, err
	}

	buildlog.Log(ctx).Info().
		Str("task", PhasePackage).
		Msgf("wrote %s", archive)
	return true, nil
}
