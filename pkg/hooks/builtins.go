package hooks

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/elevans/imgal/pkg/buildlog"
)

// shellLine turns a list of command words into a single shell line. Leading
// words of the form NAME=value become environment assignments, everything
// else is quoted.
func shellLine(parts []string) (string, error) {
	words := make([]string, 0, len(parts))
	assignsDone := false

	for _, part := range parts {
		if !assignsDone {
			if idx := strings.IndexByte(part, '='); idx > 0 && !strings.ContainsAny(part[:idx], " \t") {
				value, err := syntax.Quote(part[idx+1:], syntax.LangBash)
				if err != nil {
					return "", eris.Wrapf(err, "failed to quote %s", part)
				}
				words = append(words, part[:idx+1]+value)
				continue
			}
			assignsDone = true
		}

		quoted, err := syntax.Quote(part, syntax.LangBash)
		if err != nil {
			return "", eris.Wrapf(err, "failed to quote %s", part)
		}
		words = append(words, quoted)
	}

	return strings.Join(words, " "), nil
}

func starOption(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultValue starlark.String
	var help string

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &defaultValue, "help?", &help)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	if !ctx.initPhase {
		return nil, eris.New("option() can only be called in the global scope")
	}

	ctx.options[name] = Option{
		DefaultValue: defaultValue,
		Help:         help,
	}

	if value, ok := ctx.optionValues[name]; ok {
		return starlark.String(value), nil
	}
	return defaultValue, nil
}

func starTask(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var deps starlark.Value
	var skipIfExists starlark.Value
	var inputs starlark.Value
	var outputs starlark.Value
	var env *starlark.Dict
	var cmds *starlark.List

	task := new(Task)

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name??", &task.Name, "hidden?", &task.Hidden,
		"desc?", &task.Desc, "deps?", &deps, "base?", &task.Base, "skip_if_exists?", &skipIfExists,
		"inputs?", &inputs, "outputs?", &outputs, "env?", &env, "cmds?", &cmds)
	if err != nil {
		return nil, err
	}

	if task.Name == "" {
		task.Hidden = true
		task.Name = "auto#" + nanoid.New()
	}

	for _, reserved := range []string{"configure", "native-build", "stage", "package"} {
		if task.Name == reserved {
			return nil, eris.Errorf("the task name %q is reserved for the build pipeline", reserved)
		}
	}

	ctx := getCtx(thread)

	if task.Base == "" {
		task.Base = "."
	}
	task.Base = normalizePath(ctx, task.Base)
	task.Env = map[string]string{}

	if task.Deps, err = stringSlice(deps, "deps"); err != nil {
		return nil, err
	}
	if task.SkipIfExists, err = stringSlice(skipIfExists, "skip_if_exists"); err != nil {
		return nil, err
	}
	if task.Inputs, err = stringSlice(inputs, "inputs"); err != nil {
		return nil, err
	}
	if task.Outputs, err = stringSlice(outputs, "outputs"); err != nil {
		return nil, err
	}

	if env != nil {
		for _, rawKey := range env.Keys() {
			key, ok := rawKey.(starlark.String)
			if !ok {
				return nil, eris.Errorf("found key of type %s in env map but only strings are supported", rawKey.Type())
			}

			rawValue, _, err := env.Get(rawKey)
			if err != nil {
				return nil, err
			}
			value, ok := rawValue.(starlark.String)
			if !ok {
				return nil, eris.Errorf("found value of type %s for env key %s but only strings are supported", rawValue.Type(), key.GoString())
			}

			task.Env[key.GoString()] = value.GoString()
		}
	}

	task.Cmds = make([]Command, 0)
	if cmds != nil {
		iter := cmds.Iterate()
		defer iter.Done()

		var item starlark.Value
		idx := 0
		for iter.Next(&item) {
			switch value := item.(type) {
			case starlark.String:
				task.Cmds = append(task.Cmds, ShellCommand{TaskName: task.Name, Content: value.GoString(), Index: idx})
			case starlark.Tuple:
				parts, err := tupleToStrings(value)
				if err != nil {
					return nil, eris.Wrapf(err, "failed to process command #%d", idx)
				}
				line, err := shellLine(parts)
				if err != nil {
					return nil, eris.Wrapf(err, "failed to process command #%d", idx)
				}
				task.Cmds = append(task.Cmds, ShellCommand{TaskName: task.Name, Content: line, Index: idx})
			case *starlark.List:
				parts, err := stringSlice(value, "cmds")
				if err != nil {
					return nil, eris.Wrapf(err, "failed to process command #%d", idx)
				}
				line, err := shellLine(parts)
				if err != nil {
					return nil, eris.Wrapf(err, "failed to process command #%d", idx)
				}
				task.Cmds = append(task.Cmds, ShellCommand{TaskName: task.Name, Content: line, Index: idx})
			case *Task:
				task.Cmds = append(task.Cmds, TaskRef{Task: value})
			default:
				return nil, eris.Errorf("%s: unexpected type %s, only strings, tuples, lists and tasks are valid", fn.Name(), item.Type())
			}
			idx++
		}
	}

	if len(task.Inputs) > 0 && len(task.Outputs) == 0 {
		logAt(thread, "warn", task.Name+": found inputs but no outputs")
	}

	if !task.Hidden {
		ctx.tasks = append(ctx.tasks, task)
	}
	return task, nil
}

func tupleToStrings(tuple starlark.Tuple) ([]string, error) {
	parts := make([]string, len(tuple))
	for idx, item := range tuple {
		value, ok := item.(starlark.String)
		if !ok {
			return nil, eris.Errorf("found argument of type %s but only strings are supported", item.Type())
		}
		parts[idx] = value.GoString()
	}
	return parts, nil
}

func starInfo(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message); err != nil {
		return nil, err
	}

	logAt(thread, "info", message)
	return starlark.None, nil
}

func starWarn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message); err != nil {
		return nil, err
	}

	logAt(thread, "warn", message)
	return starlark.None, nil
}

func starError(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message); err != nil {
		return nil, err
	}

	return nil, eris.New(message)
}

func starGetenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &key); err != nil {
		return nil, err
	}

	value, ok := getCtx(thread).envOverrides[key]
	if !ok {
		value = os.Getenv(key)
	}
	return starlark.String(value), nil
}

func starSetenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key, value string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &key, &value); err != nil {
		return nil, err
	}

	getCtx(thread).envOverrides[key] = value
	return starlark.True, nil
}

func starPrependPath(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var pathDir string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &pathDir); err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	path, ok := ctx.envOverrides["PATH"]
	if !ok {
		path = os.Getenv("PATH")
	}

	ctx.envOverrides["PATH"] = normalizePath(ctx, pathDir) + string(os.PathListSeparator) + path
	return starlark.String(ctx.envOverrides["PATH"]), nil
}

func starResolvePath(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) < 1 {
		return nil, eris.New("expects at least one argument")
	}

	parts := make([]string, len(args))
	for idx, path := range args {
		value, ok := path.(starlark.String)
		if !ok {
			return nil, eris.Errorf("only accepts string arguments but argument %d was a %s", idx, path.Type())
		}
		parts[idx] = value.GoString()
	}

	return starlark.String(normalizePath(getCtx(thread), parts...)), nil
}

func starIsdir(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var dirPath string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &dirPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(normalizePath(getCtx(thread), dirPath))
	return starlark.Bool(err == nil && info.IsDir()), nil
}

func starIsfile(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var filePath string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &filePath); err != nil {
		return nil, err
	}

	info, err := os.Stat(normalizePath(getCtx(thread), filePath))
	return starlark.Bool(err == nil && info.Mode().IsRegular()), nil
}

// starReadYaml exposes read_yaml(file, dotted.key, default) so hook scripts
// can look up values from the project manifest or other YAML files.
func starReadYaml(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var yamlFile string
	var yamlKey string
	var defaultValue starlark.Value = starlark.None

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &yamlFile, &yamlKey, &defaultValue)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	yamlFile = normalizePath(ctx, yamlFile)

	doc, loaded := ctx.yamlCache[yamlFile]
	if !loaded {
		content, err := os.ReadFile(yamlFile)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to open file %s", yamlFile)
		}
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, eris.Wrapf(err, "failed to parse file %s", yamlFile)
		}
		ctx.yamlCache[yamlFile] = doc
	}

	value := doc
	for _, key := range strings.Split(yamlKey, ".") {
		switch node := value.(type) {
		case map[string]interface{}:
			value = node[key]
		default:
			value = nil
		}
		if value == nil {
			return defaultValue, nil
		}
	}

	return goValueToStarlark(value, defaultValue)
}

func goValueToStarlark(value interface{}, fallback starlark.Value) (starlark.Value, error) {
	switch value := value.(type) {
	case nil:
		return fallback, nil
	case string:
		return starlark.String(value), nil
	case int:
		return starlark.MakeInt(value), nil
	case bool:
		return starlark.Bool(value), nil
	case float64:
		return starlark.Float(value), nil
	case []interface{}:
		tuple := make(starlark.Tuple, len(value))
		for idx, item := range value {
			converted, err := goValueToStarlark(item, starlark.None)
			if err != nil {
				return nil, err
			}
			tuple[idx] = converted
		}
		return tuple, nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(value))
		for k, v := range value {
			converted, err := goValueToStarlark(v, starlark.None)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), converted); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, eris.Errorf("can't convert value %v", value)
	}
}

// starExecute runs a shell command during script evaluation and returns its
// output, either as a string or parsed from JSON.
func starExecute(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var command starlark.Value
	var outputFormat string
	var showError bool

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "command", &command, "format?", &outputFormat, "show_error?", &showError)
	if err != nil {
		return nil, err
	}

	if outputFormat == "" {
		outputFormat = "text"
	}
	if outputFormat != "text" && outputFormat != "json" {
		return nil, eris.Errorf("unsupported format %s", outputFormat)
	}

	var content string
	switch command := command.(type) {
	case starlark.String:
		content = command.GoString()
	case starlark.Tuple:
		parts, err := tupleToStrings(command)
		if err != nil {
			return nil, err
		}
		content, err = shellLine(parts)
		if err != nil {
			return nil, err
		}
	default:
		return nil, eris.Errorf("unexpected type %s for command parameter, only strings and tuples are valid", command.Type())
	}

	ctx := getCtx(thread)
	parser := syntax.NewParser()
	script := ShellCommand{TaskName: fn.Name(), Content: content}
	stmts, err := script.Stmts(parser)
	if err != nil {
		return nil, err
	}

	outputBuffer := strings.Builder{}
	errOut := os.Stderr
	if !showError {
		errOut = nil
	}

	runner, err := interp.New(
		interp.Dir(filepath.Dir(ctx.filename)),
		interp.Env(expand.ListEnviron(getEnvVars(ctx)...)),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, &outputBuffer, errOut),
		interp.Params("-e"),
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to initialize runner")
	}

	for _, stmt := range stmts {
		if err := runner.Run(ctx.ctx, stmt); err != nil {
			if showError {
				buildlog.Log(ctx.ctx).Error().Err(err).Msg("shell error")
			}
			return starlark.False, nil
		}
	}

	if outputFormat == "json" {
		var decoded interface{}
		if err := json.Unmarshal([]byte(outputBuffer.String()), &decoded); err != nil {
			return nil, eris.Wrap(err, "failed to parse command output")
		}
		return goValueToStarlark(decoded, starlark.None)
	}

	return starlark.String(outputBuffer.String()), nil
}
