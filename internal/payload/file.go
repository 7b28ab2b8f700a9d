package payload

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/groblegark/audittrail/internal/model"
)

// FileReader reads payload documents from a local JSONL log through a fixed
// pool of file handles. A handle is checked out per read and returned on
// every exit path, so concurrent requests never share one.
type FileReader struct {
	path    string
	handles chan *os.File
}

// NewFileReader opens poolSize handles on the payload log at path.
func NewFileReader(path string, poolSize int) (*FileReader, error) {
	if poolSize < 1 {
		poolSize = 1
	}
	handles := make(chan *os.File, poolSize)
	for range poolSize {
		f, err := os.Open(path)
		if err != nil {
			for len(handles) > 0 {
				(<-handles).Close()
			}
			return nil, fmt.Errorf("open payload log %s: %w", path, err)
		}
		handles <- f
	}
	return &FileReader{path: path, handles: handles}, nil
}

// Read fetches exactly the locator's byte range. A short read (locator
// pointing past the end of the log) fails the request.
func (r *FileReader) Read(ctx context.Context, loc model.PayloadLocator) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case f := <-r.handles:
		defer func() { r.handles <- f }()

		buf := make([]byte, loc.Length)
		if _, err := f.ReadAt(buf, loc.Offset); err != nil {
			return nil, &ReadError{Locator: loc, Err: err}
		}
		return decodeDocument(loc, buf)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close waits for in-flight reads to return their handles and closes them
// all. No Read may be issued after Close.
func (r *FileReader) Close() error {
	var firstErr error
	for range cap(r.handles) {
		f := <-r.handles
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
