package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/elevans/imgal/pkg/buildlog"
)

type (
	runtimeCtxKey struct{}
	runtimeCtx    struct {
		doneTasks map[string]bool
	}
)

func getRuntimeCtx(ctx context.Context) *runtimeCtx {
	return ctx.Value(runtimeCtxKey{}).(*runtimeCtx)
}

func taskEnv(task *Task) expand.Environ {
	envVars := os.Environ()
	for name, value := range task.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", name, value))
	}
	return expand.ListEnviron(envVars...)
}

var defaultExecHandler = interp.DefaultExecHandler(2)

func execHandler(ctx context.Context, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "mv", "rm", "mkdir":
			// route these through our cross-platform implementations so they
			// behave the same on every OS
			args = append([]string{"imgal-tool"}, args...)
		}
	}

	return defaultExecHandler(ctx, args)
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

// resolvePatterns expands glob patterns relative to base. Patterns without
// glob characters are returned as plain paths even when they don't exist,
// patterns with glob characters expand to their matches.
func resolvePatterns(base string, patterns []string) ([]string, error) {
	result := []string{}
	for _, item := range patterns {
		if !filepath.IsAbs(item) {
			item = filepath.Join(base, item)
		}
		item = filepath.ToSlash(filepath.Clean(item))

		if !strings.ContainsAny(item, "*?[{") {
			result = append(result, item)
			continue
		}

		matches, err := doublestar.FilepathGlob(item)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to resolve pattern %s", item)
		}
		result = append(result, matches...)
	}
	return result, nil
}

// RunTask executes the named task, its dependencies first.
func RunTask(ctx context.Context, task string, tasks TaskSet, dryRun, force bool) error {
	rctx := runtimeCtx{
		doneTasks: make(map[string]bool),
	}

	ctx = context.WithValue(ctx, runtimeCtxKey{}, &rctx)
	taskMeta, found := tasks[task]
	if !found {
		return eris.Errorf("task %s not found", task)
	}

	return runTaskInternal(ctx, taskMeta, tasks, dryRun, force, true)
}

func runTaskInternal(ctx context.Context, task *Task, tasks TaskSet, dryRun, force, canSkip bool) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	rctx := getRuntimeCtx(ctx)
	if done, ok := rctx.doneTasks[task.Name]; ok {
		if done {
			buildlog.Log(ctx).Debug().Msgf("task %s already run", task.Name)
			return nil
		}
		return eris.Errorf("task %s was called recursively", task.Name)
	}

	rctx.doneTasks[task.Name] = false

	for _, dep := range task.Deps {
		if !rctx.doneTasks[dep] {
			depTask, ok := tasks[dep]
			if !ok {
				return eris.Errorf("task %s not found", dep)
			}

			if err := runTaskInternal(ctx, depTask, tasks, dryRun, false, true); err != nil {
				return eris.Wrapf(err, "task %s failed due to its dependency %s", task.Name, dep)
			}
		}
	}

	if canSkip && !force && len(task.SkipIfExists) > 0 {
		skipList, err := resolvePatterns(task.Base, task.SkipIfExists)
		if err != nil {
			return eris.Wrap(err, "failed to resolve skip_if_exists list")
		}

		found := 0
		for _, item := range skipList {
			_, err := os.Stat(item)
			if err == nil {
				found++
			} else if !eris.Is(err, os.ErrNotExist) {
				return eris.Wrapf(err, "failed to check %s", item)
			}
		}

		if found > 0 && found == len(skipList) {
			buildlog.Log(ctx).Info().
				Str("task", task.Name).
				Msg("skipped because all skip files exist")

			rctx.doneTasks[task.Name] = true
			return nil
		}
	}

	if !force {
		upToDate, err := outputsUpToDate(ctx, task)
		if err != nil {
			return err
		}
		if upToDate {
			rctx.doneTasks[task.Name] = true
			return nil
		}
	}

	runner, err := interp.New(
		interp.Dir(task.Base),
		interp.Env(taskEnv(task)),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, os.Stdout, os.Stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "failed to initialize runner")
	}

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(syntax.Minify(true))
	strBuffer := strings.Builder{}

	for _, item := range task.Cmds {
		stmts, err := item.Stmts(parser)
		if err != nil {
			return eris.Wrap(err, "failed to parse shell script")
		}

		if stmts != nil {
			for _, stmt := range stmts {
				strBuffer.Reset()
				printer.Print(&strBuffer, stmt)
				buildlog.Log(ctx).Info().
					Str("task", task.Name).
					Bool("command", true).
					Msg(strBuffer.String())

				if !dryRun {
					if err := runner.Run(ctx, stmt); err != nil {
						return err
					}
					if runner.Exited() {
						return nil
					}
				}
			}
		} else if subTask := item.Ref(); subTask != nil {
			if err := runTaskInternal(ctx, subTask, tasks, dryRun, force, true); err != nil {
				return err
			}
		} else {
			return eris.Errorf("unexpected task command %+v", item)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	rctx.doneTasks[task.Name] = true
	return nil
}

// outputsUpToDate reports whether every output is newer than the newest
// input. Tasks without inputs are never considered up to date.
func outputsUpToDate(ctx context.Context, task *Task) (bool, error) {
	inputList, err := resolvePatterns(task.Base, task.Inputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve inputs")
	}

	var newestInput time.Time
	for _, item := range inputList {
		info, err := os.Stat(item)
		if err != nil {
			return false, eris.Wrapf(err, "failed to check input %s", item)
		}
		if info.ModTime().After(newestInput) {
			newestInput = info.ModTime()
		}
	}

	if newestInput.IsZero() {
		return false, nil
	}

	outputList, err := resolvePatterns(task.Base, task.Outputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve outputs")
	}

	var newestOutput time.Time
	for _, item := range outputList {
		info, err := os.Stat(item)
		if eris.Is(err, os.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, eris.Wrapf(err, "failed to check output %s", item)
		}
		if info.ModTime().After(newestOutput) {
			newestOutput = info.ModTime()
		}
	}

	if newestOutput.After(newestInput) {
		buildlog.Log(ctx).Info().
			Str("task", task.Name).
			Msgf("nothing to do (output is %f seconds newer)", newestOutput.Sub(newestInput).Seconds())
		return true, nil
	}
	return false, nil
}
