// Package jar writes jar-layout zip archives: compiled classes plus staged
// resources, fronted by a generated META-INF/MANIFEST.MF.
package jar

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Manifest holds the attributes written to META-INF/MANIFEST.MF.
type Manifest struct {
	// CreatedBy identifies the producing tool.
	CreatedBy string
	// MainClass is the optional Main-Class attribute.
	MainClass string
	// ClassPath entries become the Class-Path attribute when non-empty,
	// enabling classpath resolution at load time.
	ClassPath []string
}

// Entry maps a directory tree on disk into the archive.
type Entry struct {
	// Source is the directory whose contents are added.
	Source string
	// Prefix is the archive path the contents are placed under; empty
	// places them at the archive root.
	Prefix string
	// Optional entries are skipped silently when the source directory
	// does not exist.
	Optional bool
}

// Write produces the archive at the given path. Entry order is preserved so
// the manifest stays the first file in the archive, as jar consumers expect.
func Write(path string, manifest Manifest, entries []Entry) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o770); err != nil {
		return eris.Wrapf(err, "failed to create archive directory %s", filepath.Dir(path))
	}

	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "failed to create archive %s", path)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	zw := zip.NewWriter(out)
	defer func() {
		if closeErr := zw.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	mw, err := zw.Create("META-INF/MANIFEST.MF")
	if err != nil {
		return eris.Wrap(err, "failed to create manifest entry")
	}
	if _, err := mw.Write([]byte(manifest.render())); err != nil {
		return eris.Wrap(err, "failed to write manifest")
	}

	for _, entry := range entries {
		if err := addTree(zw, entry); err != nil {
			return err
		}
	}

	return nil
}

// render serializes the manifest attributes. Lines longer than 72 bytes are
// folded with a continuation space, per the jar manifest format.
func (m Manifest) render() string {
	var b strings.Builder
	writeAttribute(&b, "Manifest-Version", "1.0")

	createdBy := m.CreatedBy
	if createdBy == "" {
		createdBy = "imgal-tool"
	}
	writeAttribute(&b, "Created-By", createdBy)

	if m.MainClass != "" {
		writeAttribute(&b, "Main-Class", m.MainClass)
	}
	if len(m.ClassPath) > 0 {
		writeAttribute(&b, "Class-Path", strings.Join(m.ClassPath, " "))
	}

	b.WriteString("\r\n")
	return b.String()
}

func writeAttribute(b *strings.Builder, name, value string) {
	line := name + ": " + value
	for len(line) > 72 {
		b.WriteString(line[:72])
		b.WriteString("\r\n")
		line = " " + line[72:]
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}

func addTree(zw *zip.Writer, entry Entry) error {
	info, err := os.Stat(entry.Source)
	if err != nil {
		if entry.Optional && eris.Is(err, os.ErrNotExist) {
			return nil
		}
		return eris.Wrapf(err, "failed to read archive input %s", entry.Source)
	}
	if !info.IsDir() {
		return eris.Errorf("archive input %s is not a directory", entry.Source)
	}

	return filepath.WalkDir(entry.Source, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(entry.Source, path)
		if err != nil {
			return err
		}

		name := filepath.ToSlash(filepath.Join(entry.Prefix, rel))
		w, err := zw.Create(name)
		if err != nil {
			return eris.Wrapf(err, "failed to create archive entry %s", name)
		}

		f, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "failed to open %s", path)
		}
		if _, err := io.Copy(w, f); err != nil {
			f.Close()
			return eris.Wrapf(err, "failed to pack %s", path)
		}
		return f.Close()
	})
}
