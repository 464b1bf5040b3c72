package pipeline

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/elevans/imgal/pkg/buildlog"
	"github.com/elevans/imgal/pkg/hooks"
	"github.com/elevans/imgal/pkg/manifest"
	"github.com/elevans/imgal/pkg/platform"
)

func testContext() context.Context {
	logger := zerolog.Nop()
	return buildlog.WithLogger(context.Background(), &logger)
}

// testProject writes a minimal project tree whose "toolchain" is a shell
// redirect that writes the platform artifact and a marker file.
func testProject(t *testing.T, skip bool) *manifest.Manifest {
	t.Helper()

	root := t.TempDir()
	variant, err := platform.Current()
	if err != nil {
		t.Skipf("unsupported platform: %v", err)
	}
	artifact := variant.FileName("testlib")

	for _, dir := range []string{
		filepath.Join(root, "native", "out"),
		filepath.Join(root, "build", "classes", "io", "imgal"),
	} {
		if err := os.MkdirAll(dir, 0o770); err != nil {
			t.Fatal(err)
		}
	}
	classFile := filepath.Join(root, "build", "classes", "io", "imgal", "Main.class")
	if err := os.WriteFile(classFile, []byte("cafebabe"), 0o660); err != nil {
		t.Fatal(err)
	}

	build := fmt.Sprintf("echo native > out/%s; echo ran > built.marker", artifact)
	content := fmt.Sprintf(`
project:
  name: testlib
  version: 0.1.0
native:
  dir: native
  build: "%s"
  output: native/out
  library: testlib
  skip: %v
staging:
  dest: build/natives
package:
  classes: build/classes
  output: build/dist
`, build, skip)

	path := filepath.Join(root, manifest.DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o660); err != nil {
		t.Fatal(err)
	}

	m, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return m
}

func TestRunPhaseOrder(t *testing.T) {
	m := testProject(t, false)
	p := New(m, Options{})

	if err := p.Run(testContext()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	want := []string{PhaseNativeBuild, PhaseStage, PhasePackage}
	if len(p.Ran) != len(want) {
		t.Fatalf("expected phases %v, got %v", want, p.Ran)
	}
	for i, phase := range want {
		if p.Ran[i] != phase {
			t.Fatalf("expected phases %v, got %v", want, p.Ran)
		}
	}

	archive := filepath.Join(m.Root(), "build", "dist", "testlib-0.1.0.jar")
	if _, err := os.Stat(archive); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}

func TestRunSkipNativeWithPriorArtifact(t *testing.T) {
	m := testProject(t, true)

	// artifact from an earlier build
	variant, err := platform.Current()
	if err != nil {
		t.Fatal(err)
	}
	prior := filepath.Join(m.Path(m.Native.Output), variant.FileName("testlib"))
	if err := os.WriteFile(prior, []byte("prior build"), 0o660); err != nil {
		t.Fatal(err)
	}

	p := New(m, Options{})
	if err := p.Run(testContext()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(m.Path(m.Native.Dir), "built.marker")); !os.IsNotExist(err) {
		t.Error("toolchain command ran despite native.skip")
	}

	if len(p.Ran) != 2 || p.Ran[0] != PhaseStage || p.Ran[1] != PhasePackage {
		t.Errorf("expected [stage package], got %v", p.Ran)
	}

	archive := filepath.Join(m.Root(), "build", "dist", "testlib-0.1.0.jar")
	if _, err := os.Stat(archive); err != nil {
		t.Errorf("packaging should succeed with a prior artifact: %v", err)
	}
}

func TestRunSkipWithoutArtifactFails(t *testing.T) {
	m := testProject(t, true)

	p := New(m, Options{})
	if err := p.Run(testContext()); err == nil {
		t.Error("Run() should fail when nothing was ever built or staged")
	}
}

func TestArchiveContainsStagedNativesOnly(t *testing.T) {
	m := testProject(t, false)

	// toolchain intermediates next to the artifact
	for _, name := range []string{"testlib.d", "libtestlib.rlib", "testlib.pdb"} {
		path := filepath.Join(m.Path(m.Native.Output), name)
		if err := os.WriteFile(path, []byte("junk"), 0o660); err != nil {
			t.Fatal(err)
		}
	}

	p := New(m, Options{})
	if err := p.Run(testContext()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	archive := filepath.Join(m.Root(), "build", "dist", "testlib-0.1.0.jar")
	zr, err := zip.OpenReader(archive)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	variant, _ := platform.Current()
	wantNative := "natives/" + variant.FileName("testlib")
	foundNative := false
	foundClass := false
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".d") || strings.HasSuffix(f.Name, ".rlib") || strings.HasSuffix(f.Name, ".pdb") {
			t.Errorf("intermediate %s leaked into the archive", f.Name)
		}
		if f.Name == wantNative {
			foundNative = true
		}
		if f.Name == "io/imgal/Main.class" {
			foundClass = true
		}
	}
	if !foundNative {
		t.Errorf("archive is missing %s", wantNative)
	}
	if !foundClass {
		t.Error("archive is missing the compiled classes")
	}
}

func TestRunDry(t *testing.T) {
	m := testProject(t, false)

	p := New(m, Options{DryRun: true})
	if err := p.Run(testContext()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(m.Path(m.Native.Dir), "built.marker")); !os.IsNotExist(err) {
		t.Error("dry run executed the toolchain command")
	}
	if _, err := os.Stat(filepath.Join(m.Root(), "build", "dist")); !os.IsNotExist(err) {
		t.Error("dry run wrote the archive")
	}
}

func TestRunDryFreshCheckout(t *testing.T) {
	m := testProject(t, false)

	// a fresh checkout has no toolchain output directory
	if err := os.RemoveAll(m.Path(m.Native.Output)); err != nil {
		t.Fatal(err)
	}

	p := New(m, Options{DryRun: true})
	if err := p.Run(testContext()); err != nil {
		t.Fatalf("Run() failed on a fresh checkout: %v", err)
	}

	want := []string{PhaseNativeBuild, PhaseStage, PhasePackage}
	if len(p.Ran) != len(want) {
		t.Fatalf("expected phases %v, got %v", want, p.Ran)
	}
	if _, err := os.Stat(m.Path(m.Native.Output)); !os.IsNotExist(err) {
		t.Error("dry run created the toolchain output directory")
	}
}

func TestRunHooks(t *testing.T) {
	m := testProject(t, false)

	script := filepath.Join(m.Root(), hooks.DefaultFileName)
	err := os.WriteFile(script, []byte(`
def configure():
    task("pre:stage", cmds=["echo hooked >> hook.log"])
`), 0o660)
	if err != nil {
		t.Fatal(err)
	}

	ctx := testContext()
	tasks, _, err := hooks.RunScript(ctx, script, m.Root(), nil, true)
	if err != nil {
		t.Fatal(err)
	}

	p := New(m, Options{HookTasks: tasks})
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(m.Root(), "hook.log")); err != nil {
		t.Errorf("pre:stage hook did not run: %v", err)
	}
}
