package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindTimeout   Kind = "timeout"
	KindTransport Kind = "transport"
	KindParse     Kind = "parse"
	KindNotFound  Kind = "not_found"
	KindEmpty     Kind = "empty"
)

var (
	errEmptyQuery = errors.New("query is empty")
	errNotHTTP    = errors.New("not an absolute http(s) URL")
	// ErrNoContent is wrapped by KindEmpty failures.
	ErrNoContent = errors.New("page has no visible text")
)

// Error is the failure type returned by every ContentFetcher implementation.
type Error struct {
	Kind Kind
	// Op is OpSearch or OpFetch.
	Op string
	// Target is the query or URL the operation was given.
	Target string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %q: %s", e.Op, e.Target, e.Kind)
	}
	return fmt.Sprintf("%s %q: %s: %v", e.Op, e.Target, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return ""
}

func IsTimeout(err error) bool  { return KindOf(err) == KindTimeout }
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
func IsEmpty(err error) bool    { return KindOf(err) == KindEmpty }

// Classify wraps a transport-level error. Deadline and timeout errors map to
// KindTimeout, everything else to KindTransport. An *Error is returned as is.
func Classify(op, target string, err error) error {
	if err == nil {
		return nil
	}
	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return err
	}

	kind := KindTransport
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Target: target, Err: err}
}

// StatusError maps a non-2xx HTTP status to a failure. 404 and 410 are
// KindNotFound; any other status is KindTransport.
func StatusError(op, target string, status int) error {
	kind := KindTransport
	if status == http.StatusNotFound || status == http.StatusGone {
		kind = KindNotFound
	}
	return &Error{Kind: kind, Op: op, Target: target, Err: fmt.Errorf("unexpected status %d %s", status, http.StatusText(status))}
}
