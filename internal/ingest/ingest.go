// Package ingest reads user-supplied files into collection records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"images_to_pdf/internal/collection"
	"images_to_pdf/internal/converter"
)

// File is one entry of a picker selection or drop.
type File struct {
	Name string
	Type string // declared content type, may be empty
	Size int64
	Open func() (io.ReadCloser, error)
}

// Rejection is a file that did not become a record.
type Rejection struct {
	Name string
	Err  error
}

// Message is the user-facing line for the rejection.
func (r Rejection) Message() string {
	if errors.Is(r.Err, converter.ErrUnsupportedFileType) {
		return fmt.Sprintf("Unsupported file type: %s. Only image files are allowed.", r.Name)
	}
	return fmt.Sprintf("Could not read %s: %v", r.Name, r.Err)
}

// Result is the outcome of one batch.
type Result struct {
	Records  []collection.Record // accepted files, in batch order
	Rejected []Rejection
}

// Message joins every rejection into one user-visible message, or "" if none.
func (r Result) Message() string {
	lines := make([]string, 0, len(r.Rejected))
	for _, rej := range r.Rejected {
		lines = append(lines, rej.Message())
	}
	return strings.Join(lines, "\n")
}

// Ingester reads files concurrently.
type Ingester struct {
	Workers int
}

// New returns an Ingester reading up to workers files at a time (NumCPU when <= 0).
func New(workers int) *Ingester {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Ingester{Workers: workers}
}

type readResult struct {
	index  int
	record collection.Record
	err    error
}

// Ingest filters files to image types and reads every accepted file.
// Rejections never abort the batch. Ingest returns once every read has finished,
// successfully or not.
func (in *Ingester) Ingest(ctx context.Context, files []File) Result {
	results := make([]readResult, len(files))
	sem := make(chan struct{}, max(in.Workers, 1))
	var wg sync.WaitGroup

	for i, f := range files {
		wg.Add(1)
		go func(idx int, f File) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = readResult{index: idx, err: ctx.Err()}
				return
			}
			rec, err := readFile(f)
			results[idx] = readResult{index: idx, record: rec, err: err}
		}(i, f)
	}
	wg.Wait()

	var res Result
	for i, r := range results {
		if r.err != nil {
			slog.Warn("Rejected file", "filename", files[i].Name, "error", r.err)
			res.Rejected = append(res.Rejected, Rejection{Name: files[i].Name, Err: r.err})
			continue
		}
		slog.Debug("Ingested file", "filename", r.record.Name, "type", r.record.MIMEType, "size", r.record.Size)
		res.Records = append(res.Records, r.record)
	}
	return res
}

func readFile(f File) (collection.Record, error) {
	declared := converter.DetectContentType(f.Type, f.Name, nil)
	if declared != "" && !converter.IsImageType(declared) {
		return collection.Record{}, fmt.Errorf("%w: %s", converter.ErrUnsupportedFileType, declared)
	}
	if f.Open == nil {
		return collection.Record{}, errors.New("file has no content")
	}

	rc, err := f.Open()
	if err != nil {
		return collection.Record{}, fmt.Errorf("could not open file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return collection.Record{}, fmt.Errorf("could not read file: %w", err)
	}

	mimeType := declared
	if mimeType == "" {
		mimeType = converter.DetectContentType("", "", data)
		if !converter.IsImageType(mimeType) {
			return collection.Record{}, fmt.Errorf("%w: %s", converter.ErrUnsupportedFileType, mimeType)
		}
	}

	size := f.Size
	if size <= 0 {
		size = int64(len(data))
	}
	return collection.NewRecord(f.Name, mimeType, size, data), nil
}
