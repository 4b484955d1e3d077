package wire

import "errors"

// Sentinel Errors classifying transport failures. Every *Error unwraps to
// exactly one of them.
var (
	ErrConnRefused    = errors.New("connection refused")
	ErrConnReset      = errors.New("connection reset")
	ErrConnectTimeout = errors.New("connect timeout")
	ErrUnreachable    = errors.New("host or network unreachable")
	ErrLookup         = errors.New("hostname lookup failed")
	ErrOS             = errors.New("os error")
	ErrUnexpected     = errors.New("unexpected error")
	ErrReplyTimeout   = errors.New("reply timeout")
	ErrReply          = errors.New("reply error")
	ErrNoData         = errors.New("no data received")
	ErrParse          = errors.New("parse error")
	ErrStatus         = errors.New("status error")
)

// Sentinel Errors returned by New and Login.
var (
	ErrPort             = errors.New("port error")
	ErrPasswordRequired = errors.New("password required")
	ErrChallenge        = errors.New("challenge error")
	ErrLogin            = errors.New("login error")
)

// Codes used in Error.Code besides the errno values of the failing system
// call and the status codes of non-200 replies.
const (
	// CodeParse reports an unparsable or empty reply.
	CodeParse = -1
	// CodeLookup reports a failed hostname lookup.
	CodeLookup = -2
	// CodeFailure reports a failure without an errno.
	CodeFailure = 1
	// CodeUnexpected reports an unclassified failure.
	CodeUnexpected = 999
)

// Error is a failed transaction. Code is never 0. Data holds the parsed
// reply body, if any, of a non-200 reply.
type Error struct {
	Code    int
	Message string
	Data    any

	kind error
	err  error
}

func newError(kind error, code int, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, kind: kind, err: cause}
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the classification sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}
