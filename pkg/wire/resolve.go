package wire

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Locator discovers an engine on the local network.
type Locator interface {
	Locate(ctx context.Context) (host string, port int, err error)
}

// Defaults of a UDPLocator.
const (
	DefaultLocatorAddr    = "239.192.84.82:9180"
	DefaultLocatorTimeout = 2 * time.Second
	locatorQuery          = "tractor-engine?\n"
)

// ErrNotLocated is returned by a Locator that found no engine.
var ErrNotLocated = errors.New("engine not located")

// UDPLocator sends a single query datagram to a multicast or broadcast
// address and waits for the first answer. An engine answers with
// "host:port", or with a bare port, in which case the answer's source
// address is the host.
type UDPLocator struct {
	// Addr is the "ip:port" queried, DefaultLocatorAddr if empty.
	Addr string
	// Timeout bounds the wait for an answer, DefaultLocatorTimeout if
	// zero.
	Timeout time.Duration
}

func (l *UDPLocator) Locate(ctx context.Context) (string, int, error) {
	addr := l.Addr
	if addr == "" {
		addr = DefaultLocatorAddr
	}
	timeout := l.Timeout
	if timeout == 0 {
		timeout = DefaultLocatorTimeout
	}
	raddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrNotLocated, err)
	}
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrNotLocated, err)
	}
	defer pc.Close()
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := pc.SetDeadline(deadline); err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrNotLocated, err)
	}
	if _, err := pc.WriteTo([]byte(locatorQuery), raddr); err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrNotLocated, err)
	}
	buf := make([]byte, 512)
	n, from, err := pc.ReadFrom(buf)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrNotLocated, err)
	}
	return parseLocatorReply(strings.TrimSpace(string(buf[:n])), from)
}

func parseLocatorReply(reply string, from net.Addr) (string, int, error) {
	host, portStr, ok := strings.Cut(reply, ":")
	if !ok {
		portStr = reply
		udpAddr, isUDP := from.(*net.UDPAddr)
		if !isUDP {
			return "", 0, fmt.Errorf("%w: reply %q from %v", ErrNotLocated, reply, from)
		}
		host = udpAddr.IP.String()
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || host == "" {
		return "", 0, fmt.Errorf("%w: invalid reply %q from %v", ErrNotLocated, reply, from)
	}
	return host, port, nil
}

// resolveEndpoint returns the engine's host and port. Explicit host names
// are used as given. The default host name is checked with a lookup and,
// if that fails, by asking the locator once. Successful resolutions are
// cached; the localhost fallback is not.
func (t *Transport) resolveEndpoint(ctx context.Context) (string, int) {
	if t.resolved {
		return t.host, t.port
	}
	if t.host != DefaultHost && t.host != "@" {
		t.resolved = true
		return t.host, t.port
	}
	if addrs, err := t.lookup(ctx, t.host); err == nil && len(addrs) > 0 {
		t.resolved = true
		return t.host, t.port
	}
	if t.locator != nil {
		host, port, err := t.locator.Locate(ctx)
		if err == nil {
			t.host, t.port = host, port
			t.resolved = true
			return t.host, t.port
		}
		t.debug("locator error", "error", err)
	}
	if !t.fallbackLogged {
		t.debug("could not resolve '" + DefaultHost + "' -- trying localhost")
		t.fallbackLogged = true
	}
	return "127.0.0.1", DefaultPort
}
