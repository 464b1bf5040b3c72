package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/ulikunitz/xz"

	"github.com/elevans/imgal/pkg/bundle"
)

// extract unpacks the downloaded archive into destPath. The format is
// picked from the URL's suffix.
func extract(url, archivePath, destPath string, strip int) error {
	switch {
	case strings.HasSuffix(url, ".zip"):
		return extractZip(archivePath, destPath, strip)
	case strings.HasSuffix(url, ".tar.gz"):
		return extractCompressedTar(archivePath, destPath, strip, func(f io.Reader) (io.Reader, error) {
			return gzip.NewReader(f)
		})
	case strings.HasSuffix(url, ".tar.bz2"):
		return extractCompressedTar(archivePath, destPath, strip, func(f io.Reader) (io.Reader, error) {
			return bzip2.NewReader(f), nil
		})
	case strings.HasSuffix(url, ".tar.xz"):
		return extractCompressedTar(archivePath, destPath, strip, func(f io.Reader) (io.Reader, error) {
			return xz.NewReader(f)
		})
	case strings.HasSuffix(url, ".ipk"):
		return extractBundle(archivePath, destPath)
	default:
		return eris.Errorf("archive format of %s is not supported", url)
	}
}

// stripPath removes strip leading elements. An empty result means the entry
// collapses onto the destination root and is skipped.
func stripPath(item string, strip int) string {
	parts := strings.Split(filepath.Clean(filepath.FromSlash(item)), string(filepath.Separator))
	if strip >= len(parts) {
		return ""
	}
	return filepath.Join(parts[strip:]...)
}

func createDest(destPath, item string, strip int) (*os.File, string, error) {
	rel := stripPath(item, strip)
	if rel == "" || rel == "." {
		return nil, "", nil
	}

	dest := filepath.Join(destPath, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o770); err != nil {
		return nil, "", eris.Wrapf(err, "failed to create directory for %s", dest)
	}

	handle, err := os.Create(dest)
	if err != nil {
		return nil, "", eris.Wrapf(err, "failed to create file %s", dest)
	}
	return handle, dest, nil
}

func extractZip(archivePath, destPath string, strip int) error {
	archive, err := zip.OpenReader(archivePath)
	if err != nil {
		return eris.Wrapf(err, "failed to open archive %s", archivePath)
	}
	defer archive.Close()

	for _, item := range archive.File {
		if strings.HasSuffix(item.Name, "/") {
			continue
		}

		handle, dest, err := createDest(destPath, item.Name, strip)
		if err != nil {
			return err
		}
		if handle == nil {
			continue
		}

		src, err := item.Open()
		if err != nil {
			handle.Close()
			return eris.Wrap(err, "failed to open archive entry")
		}

		_, err = io.Copy(handle, src)
		src.Close()
		if err != nil {
			handle.Close()
			return eris.Wrapf(err, "failed to extract %s", dest)
		}
		if err := handle.Close(); err != nil {
			return err
		}
	}
	return nil
}

func extractCompressedTar(archivePath, destPath string, strip int, wrap func(io.Reader) (io.Reader, error)) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return eris.Wrapf(err, "failed to open archive %s", archivePath)
	}
	defer f.Close()

	reader, err := wrap(f)
	if err != nil {
		return eris.Wrapf(err, "failed to decompress %s", archivePath)
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	archive := tar.NewReader(reader)
	for {
		item, err := archive.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return eris.Wrap(err, "failed to read archive entry")
		}

		fi := item.FileInfo()
		if fi.IsDir() {
			continue
		}

		handle, dest, err := createDest(destPath, item.Name, strip)
		if err != nil {
			return err
		}
		if handle == nil {
			continue
		}

		if item.Typeflag == tar.TypeSymlink {
			handle.Close()
			if err := os.Remove(dest); err != nil {
				return eris.Wrapf(err, "failed to remove placeholder file %s", dest)
			}
			if err := os.Symlink(item.Linkname, dest); err != nil {
				return eris.Wrapf(err, "failed to create symlink %s", dest)
			}
			continue
		}

		if _, err := io.Copy(handle, archive); err != nil {
			handle.Close()
			return eris.Wrapf(err, "failed to extract %s", dest)
		}
		if err := handle.Close(); err != nil {
			return err
		}

		os.Chmod(dest, fi.Mode())
	}
	return nil
}

func extractBundle(archivePath, destPath string) error {
	reader, err := bundle.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	return reader.Extract(destPath)
}
