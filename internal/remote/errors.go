package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a remote failure. Only RateLimited and Transient are retried.
type Kind int

const (
	KindOther Kind = iota
	KindUnauthorized
	KindNotFound
	KindRateLimited
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not found"
	case KindRateLimited:
		return "rate limited"
	case KindTransient:
		return "transient"
	default:
		return "other"
	}
}

// Sentinel errors for errors.Is checks; they match any *Error of the same kind.
var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrRateLimited  = &Error{Kind: KindRateLimited}
	ErrTransient    = &Error{Kind: KindTransient}
)

// Error is a failed call to the remote service.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	// RetryAfter is the delay the service asked for on a rate limit.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Status == 0 && t.Err == nil && e.Kind == t.Kind
}

// KindOf returns the kind of a remote error, or KindOther for anything else.
func KindOf(err error) Kind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return KindOther
}

// IsFatal reports whether err must stop the whole project rather than a
// single branch: bad credentials and cancellation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return KindOf(err) == KindUnauthorized
}

// KindForStatus maps an HTTP status code to an error kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindTransient
	default:
		return KindOther
	}
}

// FromResponse builds an Error for a non-2xx response. body is included in
// the message when non-empty.
func FromResponse(op string, resp *http.Response, body string) *Error {
	e := &Error{
		Kind:   KindForStatus(resp.StatusCode),
		Op:     op,
		Status: resp.StatusCode,
	}
	if e.Kind == KindRateLimited {
		e.RetryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	if body = strings.TrimSpace(body); body != "" {
		e.Err = errors.New(body)
	}
	return e
}

// FromTransport wraps a network failure. Cancellation is passed through
// unchanged so callers can tell it apart from a flaky connection.
func FromTransport(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP
// date. It returns 0 when the header is absent or unparseable.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
