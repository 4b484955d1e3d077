package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

// Defaults of a Transport.
const (
	DefaultHost      = "tractor-engine"
	DefaultPort      = 80
	DefaultURLPrefix = "/Tractor/"
	DefaultTimeout   = 65 * time.Second

	connectTimeout = 15 * time.Second
	sendTimeout    = 55 * time.Second
)

// Header is a request header. Headers are sent in the order given.
type Header struct {
	Name  string
	Value string
}

// Request is a single engine transaction.
type Request struct {
	// Verb is the request path relative to the URL prefix, including its
	// query string, for example "monitor?q=login&user=alice".
	Verb string
	// Form is the request body; it is trimmed and terminated by CRLF.
	Form string
	// Context names the transaction in error messages. If set, the reply
	// body is parsed into Response.Data.
	Context string
	// Headers are sent after the transport's application headers.
	Headers []Header
	// SelectParser overrides the body parser chosen from the reply's
	// Server header.
	SelectParser func(header string, code int) BodyParser
	// Inspect, if set, is called with the reply header block and code.
	Inspect func(header string, code int)
}

// Response is a successful transaction.
type Response struct {
	Header string
	Body   string
	// Data holds the parsed body if the request had a Context.
	Data any
}

// Map returns Data as a map, or nil if it is not one.
func (r *Response) Map() map[string]any {
	m, _ := r.Data.(map[string]any)
	return m
}

// Transport sends framed HTTP/1.0 requests to the engine, opening a new
// connection for every transaction.
//
// A Transport caches the resolved endpoint and whether the engine requires
// passwords; it is not safe for concurrent use.
type Transport struct {
	host string
	port int

	urlPrefix  string
	timeout    time.Duration
	appHeaders []Header
	logger     *slog.Logger
	locator    Locator
	lookup     func(ctx context.Context, host string) ([]string, error)

	resolved       bool
	fallbackLogged bool
	lastPeer       string

	passwordHash     PasswordHashFunc
	passwordRequired *bool
}

// Option configures a Transport.
type Option func(*Transport)

// WithURLPrefix sets the path prefix of every request, "/Tractor/" by
// default.
func WithURLPrefix(prefix string) Option {
	return func(t *Transport) {
		t.urlPrefix = prefix
	}
}

// WithTimeout sets the overall transaction timeout. Connecting is limited
// to at most 15 seconds and sending to at most 55 seconds of it.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.timeout = d
	}
}

// WithAppHeaders sets headers sent first with every request.
func WithAppHeaders(headers ...Header) Option {
	return func(t *Transport) {
		t.appHeaders = append([]Header(nil), headers...)
	}
}

// WithLogger sets the logger for debug messages.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithLocator sets the discovery fallback used when the default engine
// host name does not resolve. A nil locator disables discovery.
func WithLocator(l Locator) Option {
	return func(t *Transport) {
		t.locator = l
	}
}

// WithLookup replaces the host name lookup used to check the default
// engine host name.
func WithLookup(lookup func(ctx context.Context, host string) ([]string, error)) Option {
	return func(t *Transport) {
		t.lookup = lookup
	}
}

// WithPasswordHash sets a site password hash function. It also decides
// whether the engine requires passwords: it does if the function yields
// a hash.
func WithPasswordHash(f PasswordHashFunc) Option {
	return func(t *Transport) {
		t.passwordHash = f
	}
}

// New returns a Transport for the engine at host and port. If port is not
// positive, host is parsed as "host:port".
func New(host string, port int, opts ...Option) (*Transport, error) {
	if port <= 0 {
		h, p, ok := strings.Cut(host, ":")
		if !ok {
			return nil, fmt.Errorf("%w: no port in %q", ErrPort, host)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: invalid port in %q", ErrPort, host)
		}
		host, port = h, n
	}
	t := &Transport{
		host:      host,
		port:      port,
		urlPrefix: DefaultURLPrefix,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
		locator:   &UDPLocator{},
		lookup:    net.DefaultResolver.LookupHost,
		lastPeer:  "0.0.0.0",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Host returns the engine host, which changes if it was discovered by the
// locator.
func (t *Transport) Host() string { return t.host }

// Port returns the engine port.
func (t *Transport) Port() int { return t.port }

// LastPeer returns "ip:port" of the last successful connection.
func (t *Transport) LastPeer() string { return t.lastPeer }

// Transaction sends req and returns the reply. Non-200 replies and every
// transport failure are returned as *Error.
func (t *Transport) Transaction(ctx context.Context, req Request) (*Response, error) {
	msg := t.frame(req)
	conn, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := conn.SetWriteDeadline(time.Now().Add(min(sendTimeout, t.timeout))); err != nil {
		return nil, sendError(err)
	}
	if _, err := conn.Write(msg); err != nil {
		return nil, sendError(err)
	}
	reply, err := t.collect(conn, req.Context)
	if err != nil {
		return nil, err
	}
	return unpack(reply, req)
}

// frame builds the raw request.
func (t *Transport) frame(req Request) []byte {
	var b strings.Builder
	b.WriteString("POST " + t.urlPrefix + req.Verb + " HTTP/1.0\r\n")
	for _, h := range t.appHeaders {
		b.WriteString(h.Name + ": " + h.Value + "\r\n")
	}
	for _, h := range req.Headers {
		b.WriteString(h.Name + ": " + h.Value + "\r\n")
	}
	body := ""
	if req.Form != "" {
		body = strings.TrimSpace(req.Form) + "\r\n"
		if !strings.Contains(b.String(), "Content-Type: ") {
			b.WriteString("Content-Type: application/x-www-form-urlencoded\r\n")
		}
	}
	b.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func (t *Transport) debug(msg string, args ...any) {
	t.logger.Debug(msg, append(args, "engine", net.JoinHostPort(t.host, strconv.Itoa(t.port)))...)
}
