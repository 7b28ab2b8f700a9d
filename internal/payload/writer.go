package payload

import (
	"bufio"
	"fmt"
	"os"

	"github.com/groblegark/audittrail/internal/model"
)

// Writer appends JSON documents to the payload log, one per line, and hands
// back the locator covering each line's bytes, trailing newline included.
// It is not safe for concurrent use; the seeder writes from one goroutine.
type Writer struct {
	f      *os.File
	w      *bufio.Writer
	offset int64
}

// NewWriter creates or truncates the payload log at path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("create payload log %s: %w", path, err)
	}
	return &Writer{f: f, w: bufio.NewWriterSize(f, 1<<20)}, nil
}

// Append writes one document line and returns its locator.
func (w *Writer) Append(doc []byte) (model.PayloadLocator, error) {
	loc := model.PayloadLocator{Offset: w.offset, Length: int64(len(doc)) + 1}
	if _, err := w.w.Write(doc); err != nil {
		return model.PayloadLocator{}, fmt.Errorf("append payload: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return model.PayloadLocator{}, fmt.Errorf("append payload: %w", err)
	}
	w.offset = loc.Offset + loc.Length
	return loc, nil
}

// Offset returns the byte position the next Append will write at.
func (w *Writer) Offset() int64 {
	return w.offset
}

// Name returns the path of the underlying log file.
func (w *Writer) Name() string {
	return w.f.Name()
}

// Flush forces buffered lines to disk without closing the log.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush payload log: %w", err)
	}
	return nil
}

// Close flushes buffered lines and closes the log.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("flush payload log: %w", err)
	}
	return w.f.Close()
}
