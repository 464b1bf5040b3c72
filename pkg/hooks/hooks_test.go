package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/elevans/imgal/pkg/buildlog"
)

func testContext() context.Context {
	logger := zerolog.Nop()
	return buildlog.WithLogger(context.Background(), &logger)
}

func writeScript(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o660); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunScriptCollectsTasksAndOptions(t *testing.T) {
	tmp := t.TempDir()
	script := writeScript(t, tmp, `
release = option("release", default="true", help="build in release mode")

def configure():
    prepare = task(
        "prepare",
        desc="create the work directory",
        cmds=["mkdir -p work"],
    )

    task(
        "build",
        desc="pretend build",
        deps=["prepare"],
        cmds=["echo building release=" + release],
    )
`)

	tasks, options, err := RunScript(testContext(), script, tmp, nil, true)
	if err != nil {
		t.Fatalf("RunScript() failed: %v", err)
	}

	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks["build"].Deps[0] != "prepare" {
		t.Errorf("build task should depend on prepare, got %v", tasks["build"].Deps)
	}

	opt, ok := options["release"]
	if !ok {
		t.Fatal("release option not declared")
	}
	if opt.Default() != "true" {
		t.Errorf("release default = %q", opt.Default())
	}
}

func TestRunScriptOptionOverride(t *testing.T) {
	tmp := t.TempDir()
	script := writeScript(t, tmp, `
mode = option("mode", default="debug")

def configure():
    task("show", cmds=["echo " + mode], env={"BUILD_MODE": mode})
`)

	tasks, _, err := RunScript(testContext(), script, tmp, map[string]string{"mode": "release"}, true)
	if err != nil {
		t.Fatalf("RunScript() failed: %v", err)
	}

	if tasks["show"].Env["BUILD_MODE"] != "release" {
		t.Errorf("option override not applied, env = %v", tasks["show"].Env)
	}
}

func TestRunScriptRejectsReservedNames(t *testing.T) {
	tmp := t.TempDir()
	script := writeScript(t, tmp, `
def configure():
    task("native-build", cmds=["echo nope"])
`)

	if _, _, err := RunScript(testContext(), script, tmp, nil, true); err == nil {
		t.Error("RunScript() should reject reserved task names")
	}
}

func TestShellLine(t *testing.T) {
	line, err := shellLine([]string{"CC=clang", "make", "all the things"})
	if err != nil {
		t.Fatalf("shellLine() failed: %v", err)
	}

	if !strings.HasPrefix(line, "CC=clang make ") {
		t.Errorf("unexpected line %q", line)
	}
	if !strings.Contains(line, "'all the things'") && !strings.Contains(line, `"all the things"`) {
		t.Errorf("argument with spaces not quoted in %q", line)
	}
}

func TestRunTaskDependencyOrder(t *testing.T) {
	tmp := t.TempDir()
	script := writeScript(t, tmp, `
def configure():
    task("first", cmds=["echo first >> order.log"])
    task("second", deps=["first"], cmds=["echo second >> order.log"])
`)

	ctx := testContext()
	tasks, _, err := RunScript(ctx, script, tmp, nil, true)
	if err != nil {
		t.Fatal(err)
	}

	if err := RunTask(ctx, "second", tasks, false, false); err != nil {
		t.Fatalf("RunTask() failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tmp, "order.log"))
	if err != nil {
		t.Fatalf("order.log missing: %v", err)
	}
	if strings.Join(strings.Fields(string(content)), " ") != "first second" {
		t.Errorf("tasks ran in wrong order: %q", content)
	}
}

func TestRunTaskDetectsRecursion(t *testing.T) {
	tmp := t.TempDir()
	script := writeScript(t, tmp, `
def configure():
    task("a", deps=["b"], cmds=["echo a"])
    task("b", deps=["a"], cmds=["echo b"])
`)

	ctx := testContext()
	tasks, _, err := RunScript(ctx, script, tmp, nil, true)
	if err != nil {
		t.Fatal(err)
	}

	if err := RunTask(ctx, "a", tasks, false, false); err == nil {
		t.Error("RunTask() should detect recursive dependencies")
	}
}

func TestRunTaskSkipIfExists(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, "done.marker"), []byte("x"), 0o660); err != nil {
		t.Fatal(err)
	}

	script := writeScript(t, tmp, `
def configure():
    task("work", skip_if_exists=["done.marker"], cmds=["echo ran >> ran.log"])
`)

	ctx := testContext()
	tasks, _, err := RunScript(ctx, script, tmp, nil, true)
	if err != nil {
		t.Fatal(err)
	}

	if err := RunTask(ctx, "work", tasks, false, false); err != nil {
		t.Fatalf("RunTask() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmp, "ran.log")); !os.IsNotExist(err) {
		t.Error("task should have been skipped")
	}

	// force overrides the skip check
	if err := RunTask(ctx, "work", tasks, false, true); err != nil {
		t.Fatalf("forced RunTask() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "ran.log")); err != nil {
		t.Error("forced run should have executed the task")
	}
}

func TestRunTaskDryRun(t *testing.T) {
	tmp := t.TempDir()
	script := writeScript(t, tmp, `
def configure():
    task("work", cmds=["echo ran >> ran.log"])
`)

	ctx := testContext()
	tasks, _, err := RunScript(ctx, script, tmp, nil, true)
	if err != nil {
		t.Fatal(err)
	}

	if err := RunTask(ctx, "work", tasks, true, false); err != nil {
		t.Fatalf("RunTask() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmp, "ran.log")); !os.IsNotExist(err) {
		t.Error("dry run should not execute commands")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	script := writeScript(t, tmp, `
def configure():
    task("work", desc="cached task", cmds=["echo hi"])
`)

	ctx := testContext()
	tasks, _, err := RunScript(ctx, script, tmp, nil, true)
	if err != nil {
		t.Fatal(err)
	}

	cacheFile := filepath.Join(tmp, "tasks.cache")
	options := map[string]string{"mode": "release"}
	if err := WriteCache(cacheFile, options, tasks); err != nil {
		t.Fatalf("WriteCache() failed: %v", err)
	}

	loadedTasks, err := ReadCache(cacheFile, options)
	if err != nil {
		t.Fatalf("ReadCache() failed: %v", err)
	}
	if loadedTasks["work"].Desc != "cached task" {
		t.Errorf("tasks not round-tripped: %+v", loadedTasks["work"])
	}

	// a cache configured with different option values is stale
	if _, err := ReadCache(cacheFile, map[string]string{"mode": "debug"}); err == nil {
		t.Error("expected an error for mismatched options")
	}
	if _, err := ReadCache(cacheFile, nil); err == nil {
		t.Error("expected an error for missing options")
	}
}
