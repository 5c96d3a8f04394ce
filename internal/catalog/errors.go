package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrExtraction       = errors.New("extraction failed")
	ErrAuth             = errors.New("authentication failed")
	ErrQuotaExceeded    = errors.New("download quota exceeded")
	ErrConcurrencyLimit = errors.New("concurrent download limit reached")
	ErrThrottled        = errors.New("server asked to wait again after a retry")
	ErrUnknownResponse  = errors.New("unknown response")
	ErrStream           = errors.New("stream failed")
	ErrStatus           = errors.New("unexpected http status")
)

// ExtractionError means expected markup was missing from a page, this usually means the markup
// adapter does not match the server version.
type ExtractionError struct {
	What string
	Url  string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("could not find %s on %s", e.What, e.Url)
}

func (e *ExtractionError) Unwrap() error {
	return ErrExtraction
}

type StatusError struct {
	Url  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.Url)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// UnknownResponseError is returned for a textual response that could not be classified, the body
// is kept at DumpPath.
type UnknownResponseError struct {
	Url      string
	DumpPath string
}

func (e *UnknownResponseError) Error() string {
	if e.DumpPath == "" {
		return fmt.Sprintf("unknown response from %s", e.Url)
	}
	return fmt.Sprintf("unknown response from %s (dumped to %s)", e.Url, e.DumpPath)
}

func (e *UnknownResponseError) Unwrap() error {
	return ErrUnknownResponse
}

type StreamError struct {
	Path string
	Err  error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream to %s: %s", e.Path, e.Err.Error())
}

func (e *StreamError) Unwrap() []error {
	return []error{ErrStream, e.Err}
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
