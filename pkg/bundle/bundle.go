// Package bundle implements the .ipk archive format used to distribute
// prebuilt native artifacts: brotli-compressed file contents followed by a
// flat table of contents, with a fixed-size header at the front.
//
// Layout:
//
//	offset 0   magic "IPAK", format version, TOC offset, entry count
//	offset 16  brotli streams, one per file
//	TOC        per file: data offset, compressed size, decompressed size,
//	           name length, slash-separated name
package bundle

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
)

const (
	magic         = "IPAK"
	formatVersion = 1
	headerSize    = 16
)

type tocEntry struct {
	name    string
	offset  uint32
	size    uint32
	decSize uint32
}

// Writer produces .ipk bundles.
type Writer struct {
	hdl     *os.File
	entries []tocEntry
	buffer  []byte
}

// NewWriter creates the bundle file and positions the write cursor past the
// header, which is filled in by Close.
func NewWriter(filename string) (*Writer, error) {
	hdl, err := os.Create(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to create bundle %s", filename)
	}

	if _, err := hdl.Seek(headerSize, io.SeekStart); err != nil {
		hdl.Close()
		return nil, err
	}

	return &Writer{
		hdl:    hdl,
		buffer: make([]byte, 4096),
	}, nil
}

// AddFile compresses the reader's content into the bundle under the given
// slash-separated name.
func (w *Writer) AddFile(name string, reader io.Reader) error {
	name = filepath.ToSlash(name)
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "..") {
		return eris.Errorf("invalid bundle entry name %s", name)
	}

	offset, err := w.hdl.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	bw := brotli.NewWriterLevel(w.hdl, brotli.BestCompression)
	decSize, err := io.CopyBuffer(bw, reader, w.buffer)
	if err != nil {
		return eris.Wrapf(err, "failed to compress bundle entry %s", name)
	}
	if err := bw.Close(); err != nil {
		return err
	}

	end, err := w.hdl.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	w.entries = append(w.entries, tocEntry{
		name:    name,
		offset:  uint32(offset),
		size:    uint32(end - offset),
		decSize: uint32(decSize),
	})
	return nil
}

// AddTree adds every regular file below dir, named relative to dir.
func (w *Writer) AddTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "failed to open %s", path)
		}
		if err := w.AddFile(rel, f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

// Close writes the table of contents and the header, then closes the file.
func (w *Writer) Close() error {
	tocOffset, err := w.hdl.Seek(0, io.SeekCurrent)
	if err != nil {
		w.hdl.Close()
		return err
	}

	buffer := make([]byte, 14)
	for _, entry := range w.entries {
		binary.LittleEndian.PutUint32(buffer[0:4], entry.offset)
		binary.LittleEndian.PutUint32(buffer[4:8], entry.size)
		binary.LittleEndian.PutUint32(buffer[8:12], entry.decSize)
		binary.LittleEndian.PutUint16(buffer[12:14], uint16(len(entry.name)))
		if _, err := w.hdl.Write(buffer); err != nil {
			w.hdl.Close()
			return err
		}
		if _, err := w.hdl.WriteString(entry.name); err != nil {
			w.hdl.Close()
			return err
		}
	}

	header := make([]byte, headerSize)
	copy(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], formatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(tocOffset))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(w.entries)))

	if _, err := w.hdl.Seek(0, io.SeekStart); err != nil {
		w.hdl.Close()
		return err
	}
	if _, err := w.hdl.Write(header); err != nil {
		w.hdl.Close()
		return err
	}

	return w.hdl.Close()
}

// Reader opens .ipk bundles.
type Reader struct {
	hdl     *os.File
	entries []tocEntry
}

// OpenReader opens the bundle and parses its table of contents.
func OpenReader(filename string) (*Reader, error) {
	hdl, err := os.Open(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open bundle %s", filename)
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(hdl, header); err != nil {
		hdl.Close()
		return nil, eris.Wrapf(err, "failed to read bundle header of %s", filename)
	}
	if string(header[0:4]) != magic {
		hdl.Close()
		return nil, eris.Errorf("%s is not an ipk bundle", filename)
	}
	if version := binary.LittleEndian.Uint32(header[4:8]); version != formatVersion {
		hdl.Close()
		return nil, eris.Errorf("unsupported bundle version %d in %s", version, filename)
	}

	tocOffset := binary.LittleEndian.Uint32(header[8:12])
	count := binary.LittleEndian.Uint32(header[12:16])

	if _, err := hdl.Seek(int64(tocOffset), io.SeekStart); err != nil {
		hdl.Close()
		return nil, err
	}

	toc := make([]byte, 14)
	entries := make([]tocEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(hdl, toc); err != nil {
			hdl.Close()
			return nil, eris.Wrapf(err, "truncated bundle index in %s", filename)
		}

		nameLen := binary.LittleEndian.Uint16(toc[12:14])
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(hdl, name); err != nil {
			hdl.Close()
			return nil, eris.Wrapf(err, "truncated bundle index in %s", filename)
		}

		entries = append(entries, tocEntry{
			name:    string(name),
			offset:  binary.LittleEndian.Uint32(toc[0:4]),
			size:    binary.LittleEndian.Uint32(toc[4:8]),
			decSize: binary.LittleEndian.Uint32(toc[8:12]),
		})
	}

	return &Reader{hdl: hdl, entries: entries}, nil
}

// Names lists the entries in bundle order.
func (r *Reader) Names() []string {
	names := make([]string, len(r.entries))
	for i, entry := range r.entries {
		names[i] = entry.name
	}
	return names
}

// Open returns a reader for the decompressed content of the named entry.
func (r *Reader) Open(name string) (io.Reader, error) {
	for _, entry := range r.entries {
		if entry.name == name {
			section := io.NewSectionReader(r.hdl, int64(entry.offset), int64(entry.size))
			return brotli.NewReader(section), nil
		}
	}
	return nil, eris.Errorf("bundle has no entry named %s", name)
}

// Extract unpacks every entry below destDir.
func (r *Reader) Extract(destDir string) error {
	for _, entry := range r.entries {
		dest := filepath.Join(destDir, filepath.FromSlash(entry.name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o770); err != nil {
			return eris.Wrapf(err, "failed to create directory for %s", entry.name)
		}

		src, err := r.Open(entry.name)
		if err != nil {
			return err
		}

		out, err := os.Create(dest)
		if err != nil {
			return eris.Wrapf(err, "failed to create %s", dest)
		}
		if _, err := io.Copy(out, src); err != nil {
			out.Close()
			return eris.Wrapf(err, "failed to extract %s", entry.name)
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.hdl.Close()
}
