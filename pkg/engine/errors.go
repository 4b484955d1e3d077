package engine

import (
	"errors"
)

// Sentinel Errors returned by the engine client.
var (
	ErrEngine                 = errors.New("engine error")
	ErrInvalidParam           = errors.New("invalid parameter")
	ErrPasswordRequired       = errors.New("password required")
	ErrOpenConn               = errors.New("open connection error")
	ErrLogin                  = errors.New("login error")
	ErrCreateSessionDirectory = errors.New("create session directory error")
	ErrCreateSessionFile      = errors.New("create session file error")
	ErrTransaction            = errors.New("transaction error")
	ErrDBExec                 = errors.New("dbexec error")
	ErrUnexpectedReply        = errors.New("unexpected reply")
)

// TransactionError is a failed engine transaction. Its message is the
// engine's error message, shortened to the final exception line of a
// traceback unless the client is in debug mode.
type TransactionError struct {
	// Code is the transport's error code, see wire.Error.
	Code int
	Msg  string
	err  error
}

func (e *TransactionError) Error() string {
	return e.Msg
}

// Unwrap returns ErrTransaction and the transport error.
func (e *TransactionError) Unwrap() []error {
	return []error{ErrTransaction, e.err}
}
