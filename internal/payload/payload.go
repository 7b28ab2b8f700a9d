// Package payload reads and writes the audit payload log, an append-only
// JSONL file addressed by byte offset and length.
package payload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/groblegark/audittrail/internal/model"
)

// Reader fetches the payload document a locator addresses. Every call is a
// fresh read against backing storage; payload bytes are never cached between
// requests.
type Reader interface {
	Read(ctx context.Context, loc model.PayloadLocator) (json.RawMessage, error)
	Close() error
}

// ReadError reports a failed payload fetch. A request that hits one fails
// whole; pages are never served with missing or partial payloads.
type ReadError struct {
	Locator model.PayloadLocator
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read payload at offset %d length %d: %v", e.Locator.Offset, e.Locator.Length, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// decodeDocument strips the trailing newline from one log line and checks
// the remainder is a single valid JSON document.
func decodeDocument(loc model.PayloadLocator, buf []byte) (json.RawMessage, error) {
	doc := bytes.TrimRight(buf, "\n")
	if len(doc) == 0 || !json.Valid(doc) {
		return nil, &ReadError{Locator: loc, Err: errors.New("bytes are not a valid JSON document")}
	}
	return json.RawMessage(doc), nil
}
