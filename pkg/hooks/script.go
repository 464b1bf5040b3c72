package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"

	"github.com/elevans/imgal/pkg/buildlog"
)

// DefaultFileName is the hook script the build tool looks for next to the
// project manifest.
const DefaultFileName = "hooks.star"

type scriptCtx struct {
	ctx          context.Context
	filename     string
	projectRoot  string
	options      map[string]Option
	optionValues map[string]string
	envOverrides map[string]string
	yamlCache    map[string]interface{}
	tasks        []*Task
	initPhase    bool
}

func getCtx(thread *starlark.Thread) *scriptCtx {
	return thread.Local("scriptCtx").(*scriptCtx)
}

// normalizePath resolves the given path segments relative to the script's
// directory. A leading "//" anchors the path at the project root.
func normalizePath(ctx *scriptCtx, pathList ...string) string {
	result := filepath.Dir(ctx.filename)

	for _, path := range pathList {
		switch {
		case strings.HasPrefix(path, "//"):
			result = filepath.Join(ctx.projectRoot, path[2:])
		case filepath.IsAbs(path):
			result = path
		default:
			result = filepath.Join(result, path)
		}
	}

	return filepath.Clean(result)
}

func simplifyPath(ctx *scriptCtx, path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	if strings.HasPrefix(absPath, ctx.projectRoot) {
		return "//" + absPath[len(ctx.projectRoot)+1:]
	}
	return path
}

func getEnvVars(ctx *scriptCtx) []string {
	osEnv := os.Environ()
	shellEnv := make([]string, 0, len(osEnv)+len(ctx.envOverrides))
	for _, item := range osEnv {
		parts := strings.SplitN(item, "=", 2)
		if runtime.GOOS == "windows" {
			parts[0] = strings.ToUpper(parts[0])
		}

		if _, present := ctx.envOverrides[parts[0]]; !present {
			shellEnv = append(shellEnv, item)
		}
	}

	for k, v := range ctx.envOverrides {
		shellEnv = append(shellEnv, fmt.Sprintf("%s=%s", k, v))
	}

	return shellEnv
}

func stringSlice(input starlark.Value, field string) ([]string, error) {
	list, ok := input.(*starlark.List)
	if !ok || list == nil {
		return []string{}, nil
	}

	result := make([]string, 0, list.Len())
	iter := list.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		value, ok := item.(starlark.String)
		if !ok {
			return nil, eris.Errorf("expected all items in %s to be strings but found %s", field, item.Type())
		}
		result = append(result, value.GoString())
	}
	return result, nil
}

func logAt(thread *starlark.Thread, level string, msg string) {
	ctx := getCtx(thread)
	pos := thread.CallFrame(1).Pos
	line := fmt.Sprintf("%s:%d:%d: %s", simplifyPath(ctx, ctx.filename), pos.Line, pos.Col, msg)

	switch level {
	case "warn":
		buildlog.Log(ctx.ctx).Warn().Msg(line)
	default:
		buildlog.Log(ctx.ctx).Info().Msg(line)
	}
}

// RunScript evaluates a hook script and returns the declared options. If
// doConfigure is true, the script's configure function is called and the
// declared tasks are collected.
func RunScript(ctx context.Context, filename, projectRoot string, options map[string]string, doConfigure bool) (TaskSet, map[string]Option, error) {
	projectRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, nil, err
	}

	filename, err = filepath.Abs(filename)
	if err != nil {
		return nil, nil, err
	}

	builtins := starlark.StringDict{
		"OS":           starlark.String(runtime.GOOS),
		"ARCH":         starlark.String(runtime.GOARCH),
		"info":         starlark.NewBuiltin("info", starInfo),
		"warn":         starlark.NewBuiltin("warn", starWarn),
		"error":        starlark.NewBuiltin("error", starError),
		"option":       starlark.NewBuiltin("option", starOption),
		"task":         starlark.NewBuiltin("task", starTask),
		"getenv":       starlark.NewBuiltin("getenv", starGetenv),
		"setenv":       starlark.NewBuiltin("setenv", starSetenv),
		"prepend_path": starlark.NewBuiltin("prepend_path", starPrependPath),
		"resolve_path": starlark.NewBuiltin("resolve_path", starResolvePath),
		"isdir":        starlark.NewBuiltin("isdir", starIsdir),
		"isfile":       starlark.NewBuiltin("isfile", starIsfile),
		"read_yaml":    starlark.NewBuiltin("read_yaml", starReadYaml),
		"execute":      starlark.NewBuiltin("execute", starExecute),
	}

	thread := &starlark.Thread{
		Name: "hooks",
		Print: func(thread *starlark.Thread, msg string) {
			buildlog.Log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	threadCtx := scriptCtx{
		ctx:          ctx,
		filename:     filename,
		projectRoot:  projectRoot,
		options:      make(map[string]Option),
		optionValues: options,
		envOverrides: make(map[string]string),
		yamlCache:    make(map[string]interface{}),
		tasks:        make([]*Task, 0),
		initPhase:    true,
	}
	thread.SetLocal("scriptCtx", &threadCtx)

	script, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, eris.Wrap(err, "failed to read file")
	}

	globals, err := starlark.ExecFile(thread, simplifyPath(&threadCtx, filename), script, builtins)
	if err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, nil, eris.Errorf("failed to execute %s:\n%s", simplifyPath(&threadCtx, filename), evalError.Backtrace())
		}
		return nil, nil, eris.Wrap(err, "failed to execute")
	}

	tasks := TaskSet{}
	if doConfigure {
		configure, ok := globals["configure"]
		if !ok {
			return nil, nil, eris.Errorf("%s did not declare a configure function", simplifyPath(&threadCtx, filename))
		}

		configureFunc, ok := configure.(starlark.Callable)
		if !ok {
			return nil, nil, eris.Errorf("%s declared a configure value but it's not a function", simplifyPath(&threadCtx, filename))
		}

		threadCtx.initPhase = false
		_, err = starlark.Call(thread, configureFunc, nil, nil)
		if err != nil {
			if evalError, ok := err.(*starlark.EvalError); ok {
				return nil, nil, eris.New(evalError.Backtrace())
			}
			return nil, nil, eris.Wrapf(err, "failed configure call in %s", simplifyPath(&threadCtx, filename))
		}

		for _, task := range threadCtx.tasks {
			tasks[task.Name] = task

			for name, value := range threadCtx.envOverrides {
				if _, present := task.Env[name]; !present {
					task.Env[name] = value
				}
			}
		}
	}

	return tasks, threadCtx.options, nil
}
