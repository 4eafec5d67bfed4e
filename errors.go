package pdf

import (
	"errors"
	"fmt"
)

// DataMissing is raised by any call that transitively needs bytes the
// ChunkedSource has not loaded yet. Callers service it by calling
// ChunkedSource.EnsureRange(Pos, Len) and retrying the operation.
type DataMissing struct {
	Pos int64
	Len int64
}

func (e *DataMissing) Error() string {
	return fmt.Sprintf("pdf: data missing at offset %d, length %d", e.Pos, e.Len)
}

// IOError wraps a backing-medium failure (disk, network). Retry, if any, is
// the caller's choice — unlike DataMissing this is not auto-retryable.
type IOError struct {
	Message string
	Err     error
}

func (e *IOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdf: io error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("pdf: io error: %s", e.Message)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError is a recoverable structural problem. Position is the byte
// offset at which it was detected, when known (0 and !HasPosition otherwise).
type ParseError struct {
	Message     string
	Context     string
	Position    int64
	HasPosition bool
}

func (e *ParseError) Error() string {
	if e.HasPosition {
		return fmt.Sprintf("pdf: parse error at %d: %s%s", e.Position, e.Message, ctxSuffix(e.Context))
	}
	return fmt.Sprintf("pdf: parse error: %s%s", e.Message, ctxSuffix(e.Context))
}

func ctxSuffix(ctx string) string {
	if ctx == "" {
		return ""
	}
	return " (" + ctx + ")"
}

// CorruptedPDF signals an integrity violation: cycles, overflow, bounds.
// Non-retryable for the affected object; the document may still be usable.
type CorruptedPDF struct {
	Message string
}

func (e *CorruptedPDF) Error() string {
	return fmt.Sprintf("pdf: corrupted: %s", e.Message)
}

// Unsupported signals a recognized PDF feature the core does not implement.
type Unsupported struct {
	Feature string
}

func (e *Unsupported) Error() string {
	return fmt.Sprintf("pdf: unsupported: %s", e.Feature)
}

// PDFError wraps an error with operation context, mirroring the shape of a
// conventional wrapped-error type: an operation name, optional page number,
// optional path, and the underlying cause.
type PDFError struct {
	Op   string
	Page int
	Path string
	Err  error
}

func (e *PDFError) Error() string {
	switch {
	case e.Page > 0:
		return fmt.Sprintf("pdf: %s on page %d: %v", e.Op, e.Page, e.Err)
	case e.Path != "":
		return fmt.Sprintf("pdf: %s (%s): %v", e.Op, e.Path, e.Err)
	default:
		return fmt.Sprintf("pdf: %s: %v", e.Op, e.Err)
	}
}

func (e *PDFError) Unwrap() error { return e.Err }

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PDFError{Op: op, Err: err}
}

func wrapPageError(op string, page int, err error) error {
	if err == nil {
		return nil
	}
	return &PDFError{Op: op, Page: page, Err: err}
}

// AsDataMissing reports whether err is (or wraps) a *DataMissing.
func AsDataMissing(err error) (*DataMissing, bool) {
	var dm *DataMissing
	if errors.As(err, &dm) {
		return dm, true
	}
	return nil, false
}

// ErrEncrypted is returned by Open when the trailer carries /Encrypt; the
// core never attempts a best-effort partial read of an encrypted document.
var ErrEncrypted = &Unsupported{Feature: "encryption"}
