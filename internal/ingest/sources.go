package ingest

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"

	"images_to_pdf/internal/converter"
)

// ErrNoFiles is returned when the given paths contain no files at all.
var ErrNoFiles = errors.New("no files found")

// FromPath describes a file on disk. The type is guessed from the extension.
func FromPath(path string, size int64) File {
	return File{
		Name: filepath.Base(path),
		Type: converter.GetContentTypeFromFilename(path),
		Size: size,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FromMultipart describes an uploaded form file.
func FromMultipart(fh *multipart.FileHeader) File {
	return File{
		Name: fh.Filename,
		Type: fh.Header.Get("Content-Type"),
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// ScanPaths expands files and directories (one level deep) into Files.
// Directory entries are listed in name order; non-image files are kept so
// ingestion can report them.
func ScanPaths(paths []string) ([]File, error) {
	var files []File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("could not stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, FromPath(p, info.Size()))
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("could not read directory %s: %w", p, err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ei, err := e.Info()
			if err != nil {
				return nil, fmt.Errorf("could not stat %s: %w", e.Name(), err)
			}
			files = append(files, FromPath(filepath.Join(p, e.Name()), ei.Size()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoFiles, paths)
	}
	return files, nil
}
