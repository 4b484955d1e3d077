package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// connect opens a connection to the resolved engine endpoint. Go creates
// sockets with close-on-exec set, so they are never inherited by spawned
// processes.
func (t *Transport) connect(ctx context.Context) (net.Conn, error) {
	host, port := t.resolveEndpoint(ctx)
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := net.Dialer{
		Timeout:         min(connectTimeout, t.timeout),
		KeepAliveConfig: net.KeepAliveConfig{Enable: true},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classifyConnect(host, port, err)
	}
	if tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		t.lastPeer = tcpAddr.IP.String() + ":" + strconv.Itoa(port)
	}
	return conn, nil
}

// classifyConnect converts a dial failure into an *Error. The checks are
// ordered and mutually exclusive.
func classifyConnect(host string, port int, err error) *Error {
	prefix := "http connect(" + host + ":" + strconv.Itoa(port) + "): "
	var dnsErr *net.DNSError
	var errno syscall.Errno
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return newError(ErrConnRefused, int(syscall.ECONNREFUSED), prefix+"connection refused", err)
	case errors.Is(err, syscall.ECONNRESET):
		return newError(ErrConnReset, int(syscall.ECONNRESET), prefix+"connection dropped", err)
	case errors.Is(err, syscall.ETIMEDOUT):
		return newError(ErrConnectTimeout, int(syscall.ETIMEDOUT), prefix+"connect attempt timed-out (routing? firewall?)", err)
	case isTimeout(err):
		return newError(ErrConnectTimeout, int(syscall.ETIMEDOUT), prefix+"timed out", err)
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.ENETDOWN):
		errors.As(err, &errno)
		return newError(ErrUnreachable, int(errno), prefix+"host or network unreachable", err)
	case errors.As(err, &dnsErr):
		return newError(ErrLookup, CodeLookup, "hostname lookup failed: "+host, err)
	case errors.As(err, &errno):
		return newError(ErrOS, int(errno), prefix+errno.Error(), err)
	default:
		return newError(ErrUnexpected, CodeUnexpected, fmt.Sprintf("%T - %v", err, err), err)
	}
}

func sendError(err error) *Error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return newError(ErrOS, int(errno), "http transaction: "+errno.Error(), err)
	}
	return newError(ErrOS, CodeFailure, "http transaction: "+err.Error(), err)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// collect reads the reply until the engine closes the connection. The
// connection is reset on close once the reply is complete, so it does
// not linger in TIME_WAIT on the engine.
func (t *Transport) collect(conn net.Conn, parseCtx string) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return "", newError(ErrReply, CodeUnexpected, "error waiting for http reply "+parseCtx+" "+err.Error(), err)
	}
	reply, err := io.ReadAll(conn)
	if err != nil {
		if isTimeout(err) {
			return "", newError(ErrReplyTimeout, int(syscall.ETIMEDOUT),
				strings.TrimSpace("time-out waiting for http reply "+parseCtx), err)
		}
		code := CodeUnexpected
		var errno syscall.Errno
		if errors.As(err, &errno) {
			code = int(errno)
		}
		msg := "error waiting for http reply " + parseCtx + " " + err.Error()
		if parseCtx == "" {
			msg = "error waiting for http reply " + err.Error()
		}
		return "", newError(ErrReply, code, msg, err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetLinger(0)
	}
	return string(reply), nil
}
