package wire

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func dialError(err error) error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: err}
}

func TestClassifyConnect(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		err  error
		kind error
		code int
		msg  string
	}{
		"refused": {
			err:  dialError(&os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}),
			kind: ErrConnRefused,
			code: int(syscall.ECONNREFUSED),
			msg:  "http connect(farm:80): connection refused",
		},
		"reset": {
			err:  dialError(&os.SyscallError{Syscall: "connect", Err: syscall.ECONNRESET}),
			kind: ErrConnReset,
			code: int(syscall.ECONNRESET),
			msg:  "http connect(farm:80): connection dropped",
		},
		"errno timeout": {
			err:  dialError(&os.SyscallError{Syscall: "connect", Err: syscall.ETIMEDOUT}),
			kind: ErrConnectTimeout,
			code: int(syscall.ETIMEDOUT),
			msg:  "http connect(farm:80): connect attempt timed-out (routing? firewall?)",
		},
		"deadline": {
			err:  dialError(os.ErrDeadlineExceeded),
			kind: ErrConnectTimeout,
			code: int(syscall.ETIMEDOUT),
			msg:  "http connect(farm:80): timed out",
		},
		"host unreachable": {
			err:  dialError(&os.SyscallError{Syscall: "connect", Err: syscall.EHOSTUNREACH}),
			kind: ErrUnreachable,
			code: int(syscall.EHOSTUNREACH),
			msg:  "http connect(farm:80): host or network unreachable",
		},
		"network unreachable": {
			err:  dialError(&os.SyscallError{Syscall: "connect", Err: syscall.ENETUNREACH}),
			kind: ErrUnreachable,
			code: int(syscall.ENETUNREACH),
			msg:  "http connect(farm:80): host or network unreachable",
		},
		"lookup": {
			err:  dialError(&net.DNSError{Err: "no such host", Name: "farm", IsNotFound: true}),
			kind: ErrLookup,
			code: CodeLookup,
			msg:  "hostname lookup failed: farm",
		},
		"os error": {
			err:  dialError(&os.SyscallError{Syscall: "socket", Err: syscall.EACCES}),
			kind: ErrOS,
			code: int(syscall.EACCES),
			msg:  "http connect(farm:80): " + syscall.EACCES.Error(),
		},
		"unexpected": {
			err:  errors.New("weird"),
			kind: ErrUnexpected,
			code: CodeUnexpected,
			msg:  "*errors.errorString - weird",
		},
	}
	kinds := []error{ErrConnRefused, ErrConnReset, ErrConnectTimeout, ErrUnreachable, ErrLookup, ErrOS, ErrUnexpected}
	for name, tt := range tests {
		got := classifyConnect("farm", 80, tt.err)
		require.Equal(t, tt.code, got.Code, name)
		require.Equal(t, tt.msg, got.Message, name)
		require.ErrorIs(t, got, tt.err, name)
		for _, kind := range kinds {
			require.Equal(t, kind == tt.kind, errors.Is(got, kind), "%s: %v", name, kind)
		}
	}
}

func TestClassifyConnectLookup(t *testing.T) {
	t.Parallel()
	dialer := net.Dialer{Timeout: 5 * time.Second}
	_, err := dialer.DialContext(context.Background(), "tcp", "tractor-engine.invalid:80")
	require.Error(t, err)
	got := classifyConnect("tractor-engine.invalid", 80, err)
	require.ErrorIs(t, got, ErrLookup)
	require.Equal(t, CodeLookup, got.Code)
}
