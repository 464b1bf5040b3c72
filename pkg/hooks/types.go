// Package hooks implements the project's extension tasks: a hooks.star script
// declares tasks in Starlark and the runner executes their commands through a
// portable shell interpreter.
package hooks

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	"mvdan.cc/sh/v3/syntax"
)

// Command is a single step of a task, either a shell snippet or a reference
// to another task.
type Command interface {
	Stmts(parser *syntax.Parser) ([]*syntax.Stmt, error)
	Ref() *Task
}

// ShellCommand holds a shell snippet declared by a task.
type ShellCommand struct {
	TaskName string
	Content  string
	Index    int
}

func (c ShellCommand) Stmts(parser *syntax.Parser) ([]*syntax.Stmt, error) {
	result, err := parser.Parse(strings.NewReader(c.Content), fmt.Sprintf("%s:%d", c.TaskName, c.Index))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse command %s", c.Content)
	}

	return result.Stmts, nil
}

func (c ShellCommand) Ref() *Task {
	return nil
}

// TaskRef embeds another task as a command step.
type TaskRef struct {
	Task *Task
}

func (r TaskRef) Stmts(*syntax.Parser) ([]*syntax.Stmt, error) {
	return nil, nil
}

func (r TaskRef) Ref() *Task {
	return r.Task
}

// Task contains the processed values passed to task() by the hook script.
type Task struct {
	Name         string
	Desc         string
	Base         string
	Env          map[string]string
	Deps         []string
	Inputs       []string
	Outputs      []string
	SkipIfExists []string
	Cmds         []Command
	Hidden       bool
}

// TaskSet maps task names to their definitions.
type TaskSet map[string]*Task

// Option describes an option() declaration from the hook script.
type Option struct {
	DefaultValue starlark.String
	Help         string
}

func (o Option) Default() string {
	return o.DefaultValue.GoString()
}

// starlark.Value implementation so tasks can be referenced from cmds lists

func (t *Task) String() string {
	return fmt.Sprintf("<Task %s: %s>", t.Name, t.Desc)
}

func (t *Task) Type() string {
	return "task"
}

// Freeze is a no-op, tasks are never modified after creation.
func (t *Task) Freeze() {}

func (t *Task) Truth() starlark.Bool {
	return starlark.True
}

func (t *Task) Hash() (uint32, error) {
	return 0, eris.New("task is not a hashable type")
}
