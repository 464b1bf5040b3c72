package jar

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer r.Close()

	files := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read entry %s: %v", f.Name, err)
		}
		files[f.Name] = string(data)
	}
	return files
}

func TestWrite(t *testing.T) {
	classes := t.TempDir()
	writeTree(t, classes, map[string]string{
		"org/imgal/Imgal.class":   "bytecode",
		"org/imgal/Phasor.class":  "bytecode",
		"org/imgal/util/Io.class": "bytecode",
	})

	natives := t.TempDir()
	writeTree(t, natives, map[string]string{"libimgal.so": "elf"})

	out := filepath.Join(t.TempDir(), "imgal-0.3.1.jar")
	err := Write(out, Manifest{ClassPath: []string{"libs/annotations.jar"}}, []Entry{
		{Source: classes},
		{Source: natives, Prefix: "natives"},
	})
	if err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	files := readArchive(t, out)

	t.Run("classes and natives are packaged together", func(t *testing.T) {
		for _, name := range []string{
			"org/imgal/Imgal.class",
			"org/imgal/Phasor.class",
			"org/imgal/util/Io.class",
			"natives/libimgal.so",
		} {
			if _, ok := files[name]; !ok {
				t.Errorf("archive is missing %s", name)
			}
		}
	})

	t.Run("manifest carries classpath metadata", func(t *testing.T) {
		manifest, ok := files["META-INF/MANIFEST.MF"]
		if !ok {
			t.Fatal("archive is missing META-INF/MANIFEST.MF")
		}
		if !strings.Contains(manifest, "Manifest-Version: 1.0") {
			t.Error("manifest is missing Manifest-Version")
		}
		if !strings.Contains(manifest, "Class-Path: libs/annotations.jar") {
			t.Error("manifest is missing the Class-Path attribute")
		}
	})

	t.Run("manifest is the first entry", func(t *testing.T) {
		r, err := zip.OpenReader(out)
		if err != nil {
			t.Fatal(err)
		}
		defer r.Close()
		if len(r.File) == 0 || r.File[0].Name != "META-INF/MANIFEST.MF" {
			t.Error("META-INF/MANIFEST.MF is not the first archive entry")
		}
	})
}

func TestWriteOptionalEntry(t *testing.T) {
	classes := t.TempDir()
	writeTree(t, classes, map[string]string{"A.class": "bytecode"})

	out := filepath.Join(t.TempDir(), "out.jar")
	err := Write(out, Manifest{}, []Entry{
		{Source: classes},
		{Source: filepath.Join(t.TempDir(), "missing"), Prefix: "natives", Optional: true},
	})
	if err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	if _, ok := readArchive(t, out)["A.class"]; !ok {
		t.Error("archive is missing A.class")
	}
}

func TestManifestLineFolding(t *testing.T) {
	long := strings.Repeat("libs/some-dependency.jar ", 8)
	m := Manifest{ClassPath: []string{strings.TrimSpace(long)}}

	for _, line := range strings.Split(m.render(), "\r\n") {
		if len(line) > 72 {
			t.Errorf("manifest line exceeds 72 bytes: %q", line)
		}
	}
}
