package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/juliaogris/tractor/pkg/wire"
)

// Verb namespaces of the engine's URL space.
const (
	nsQueue   = "queue"
	nsMonitor = "monitor"
	nsControl = "ctrl"
	nsBTrack  = "btrack"
	nsSpool   = "spool"
	nsTask    = "task"
	nsConfig  = "config"
	nsDB      = "db"
)

// Configuration files the engine can be asked to reload.
const (
	LimitsConfig  = "limits.config"
	CrewsConfig   = "crews.config"
	BladeConfig   = "blade.config"
	TractorConfig = "tractor.config"
)

// Client defaults.
const (
	DefaultEngine = wire.DefaultHost + ":80"
	DefaultUser   = "root"
	DefaultPort   = wire.DefaultPort
	// DefaultTimeout is long enough for blocking spools and
	// subscriptions.
	DefaultTimeout = 3600 * time.Second
	SpoolVersion   = "2.0"

	appName    = "EngineClient"
	appVersion = "1.0"
	appDate    = "app date"

	// jsonContext is the parse context of transactions with a JSON reply.
	jsonContext = "JSON"
)

// Client is a session with a Tractor engine. Sessions are opened lazily
// by the first operation that needs one.
//
// A Client is not safe for concurrent use; use one Client per session.
type Client struct {
	hostname        string
	port            int
	user            string
	password        string
	debug           bool
	newSession      bool
	sessionFilename string
	urlPrefix       string
	timeout         time.Duration
	logger          *slog.Logger
	appHeaders      []wire.Header
	transportOpts   []wire.Option

	tsid     string
	conn     *wire.Transport
	connHost string // engine conn was created for
	connPort int
}

// Option configures a Client.
type Option func(*Client)

// WithEngine sets the engine's host name and port.
func WithEngine(hostname string, port int) Option {
	return func(c *Client) {
		c.hostname = hostname
		c.port = port
	}
}

// WithUser sets the user name sessions are opened for.
func WithUser(user string) Option {
	return func(c *Client) {
		c.user = user
	}
}

// WithPassword sets the password used if the engine requires one.
func WithPassword(password string) Option {
	return func(c *Client) {
		c.password = password
	}
}

// WithDebug enables debug logging and full engine error messages.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithNewSession makes Open always log in rather than reuse a session.
func WithNewSession(newSession bool) Option {
	return func(c *Client) {
		c.newSession = newSession
	}
}

// WithSessionFile sets the file a session id is saved to and reused from.
func WithSessionFile(filename string) Option {
	return func(c *Client) {
		c.sessionFilename = filename
	}
}

// WithLogger sets the logger for debug messages.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the transaction timeout, DefaultTimeout by default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithURLPrefix sets the engine's URL path prefix.
func WithURLPrefix(prefix string) Option {
	return func(c *Client) {
		c.urlPrefix = prefix
	}
}

// WithTransportOptions adds options for every wire.Transport the client
// creates.
func WithTransportOptions(opts ...wire.Option) Option {
	return func(c *Client) {
		c.transportOpts = append(c.transportOpts, opts...)
	}
}

// New returns a Client. Unless set by options, the engine is taken from
// TRACTOR_ENGINE, the user from TRACTOR_USER or USER, the password from
// TRACTOR_PASSWORD and debug mode from TRACTOR_DEBUG.
func New(opts ...Option) (*Client, error) {
	hostname, port, err := HostPortForEngine(getenv("TRACTOR_ENGINE", DefaultEngine))
	if err != nil {
		return nil, err
	}
	debug, _ := strconv.ParseBool(os.Getenv("TRACTOR_DEBUG"))
	c := &Client{
		hostname:  hostname,
		port:      port,
		user:      getenv("TRACTOR_USER", getenv("USER", DefaultUser)),
		password:  os.Getenv("TRACTOR_PASSWORD"),
		debug:     debug,
		urlPrefix: wire.DefaultURLPrefix,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
		appHeaders: []wire.Header{
			{Name: "User-Agent", Value: fmt.Sprintf("Pixar-%s/%s (%s)", appName, appVersion, appDate)},
			{Name: "X-Tractor-Blade", Value: "0"},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// HostPortForEngine splits an engine string "host[:port]" into host and
// port, defaulting to port 80.
func HostPortForEngine(engine string) (string, int, error) {
	host, portStr, ok := strings.Cut(engine, ":")
	if !ok {
		return engine, DefaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("%w: '%s' must be a numeric value for port", ErrEngine, portStr)
	}
	return host, port, nil
}

func getenv(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return fallback
}

// Hostname returns the engine's host name.
func (c *Client) Hostname() string { return c.hostname }

// Port returns the engine's port.
func (c *Client) Port() int { return c.port }

// User returns the session user.
func (c *Client) User() string { return c.user }

// Tsid returns the session id, empty if no session is open.
func (c *Client) Tsid() string { return c.tsid }

// SetParam sets one connection parameter by name: hostname, port, user,
// password, debug, newSession or sessionFilename.
func (c *Client) SetParam(name string, value any) error {
	var ok bool
	switch name {
	case "hostname":
		c.hostname, ok = value.(string)
	case "port":
		c.port, ok = value.(int)
	case "user":
		c.user, ok = value.(string)
	case "password":
		c.password, ok = value.(string)
	case "debug":
		c.debug, ok = value.(bool)
	case "newSession":
		c.newSession, ok = value.(bool)
	case "sessionFilename":
		c.sessionFilename, ok = value.(string)
	default:
		return fmt.Errorf("%w: %s is not a valid parameter. Must be in %s", ErrInvalidParam, name,
			"[hostname port user password debug newSession sessionFilename]")
	}
	if !ok {
		return fmt.Errorf("%w: %v (%T) is not a valid value for %s", ErrInvalidParam, value, value, name)
	}
	return nil
}

// engineID returns "host:port".
func (c *Client) engineID() string {
	return c.hostname + ":" + strconv.Itoa(c.port)
}

func (c *Client) dprint(msg string, args ...any) {
	if c.debug {
		c.logger.Debug(msg, append([]any{"engine", c.engineID()}, args...)...)
	}
}

// xheaders returns the per-request headers, which follow the current host,
// port and user.
func (c *Client) xheaders() []wire.Header {
	return []wire.Header{
		{Name: "Host", Value: c.engineID()},
		{Name: "Cookie", Value: "TractorUser=" + c.user},
	}
}

// transport makes sure c.conn talks to the current host and port. An
// existing transport is kept, along with its password-required answer,
// until the engine changes.
func (c *Client) transport() error {
	if c.conn != nil && c.connHost == c.hostname && c.connPort == c.port {
		return nil
	}
	opts := []wire.Option{
		wire.WithURLPrefix(c.urlPrefix),
		wire.WithTimeout(c.timeout),
		wire.WithAppHeaders(c.appHeaders...),
		wire.WithLogger(c.logger),
	}
	conn, err := wire.New(c.hostname, c.port, append(opts, c.transportOpts...)...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEngine, err)
	}
	c.conn, c.connHost, c.connPort = conn, c.hostname, c.port
	return nil
}

// param is one query parameter; order is preserved in the URL.
type param struct {
	key   string
	value any
}

// constructURL builds "verb?k=v&...", appending the session id if one is
// set. List values are comma joined.
func (c *Client) constructURL(verb string, params []param) string {
	parts := make([]string, 0, len(params)+1)
	for _, p := range params {
		parts = append(parts, p.key+"="+quote(formatValue(p.value)))
	}
	if c.tsid != "" {
		parts = append(parts, "tsid="+c.tsid)
	}
	return verb + "?" + strings.Join(parts, "&")
}

func formatValue(v any) string {
	switch v := v.(type) {
	case []string:
		return strings.Join(v, ",")
	case []int:
		s := make([]string, len(v))
		for i, n := range v {
			s[i] = strconv.Itoa(n)
		}
		return strings.Join(s, ",")
	case []any:
		s := make([]string, len(v))
		for i, e := range v {
			s[i] = fmt.Sprint(e)
		}
		return strings.Join(s, ",")
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(v)
	}
}

// quote percent-encodes s, leaving letters, digits, "_.-~" and "/" as is.
func quote(s string) string {
	s = url.QueryEscape(s)
	s = strings.ReplaceAll(s, "+", "%20")
	return strings.ReplaceAll(s, "%2F", "/")
}

var (
	raisedException  = regexp.MustCompile(`\n\s*raise .*\n(\w+:.*)\n`)
	contextException = regexp.MustCompile(`\n(\w+:.*)\n\nCONTEXT:`)
)

// shortenTraceback extracts the last "Kind: text" exception line from a
// server side traceback, or returns msg unchanged.
func shortenTraceback(msg string) string {
	for _, re := range []*regexp.Regexp{raisedException, contextException} {
		if matches := re.FindAllStringSubmatch(msg, -1); len(matches) > 0 {
			return matches[len(matches)-1][1]
		}
	}
	return msg
}

// call is a single engine transaction.
type call struct {
	verb    string
	params  []param
	payload string
	// context is the reply parse context; empty for raw text replies.
	context   string
	headers   []wire.Header
	skipLogin bool
}

// transaction sends a call, opening a session first unless the call skips
// login.
func (c *Client) transaction(ctx context.Context, cl call) (*wire.Response, error) {
	if cl.skipLogin {
		if err := c.transport(); err != nil {
			return nil, err
		}
	} else if !c.IsOpen() {
		if err := c.Open(ctx); err != nil {
			return nil, err
		}
	}
	u := c.constructURL(cl.verb, cl.params)
	c.dprint("transaction", "url", "http://"+c.engineID()+c.urlPrefix+u)
	headers := append(slices.Clone(cl.headers), c.xheaders()...)
	resp, err := c.conn.Transaction(ctx, wire.Request{
		Verb:    u,
		Form:    cl.payload,
		Context: cl.context,
		Headers: headers,
	})
	if err != nil {
		return nil, c.transactionError(err)
	}
	return resp, nil
}

func (c *Client) transactionError(err error) error {
	var werr *wire.Error
	if !errors.As(err, &werr) {
		return &TransactionError{Code: wire.CodeUnexpected, Msg: err.Error(), err: err}
	}
	data, ok := werr.Data.(map[string]any)
	if !ok && errors.Is(err, wire.ErrStatus) {
		// raw transactions leave structured error bodies unparsed
		parsed, perr := wire.ParseJSON(werr.Message)
		data, ok = parsed.(map[string]any)
		ok = ok && perr == nil
	}
	if !ok {
		return &TransactionError{Code: werr.Code, Msg: werr.Message, err: err}
	}
	msg, ok := data["msg"].(string)
	if !ok {
		msg = "unknown message: " + werr.Message
	}
	if c.debug {
		var rc any = "unknown rc"
		if v, ok := data["rc"]; ok {
			rc = v
		}
		msg = fmt.Sprintf("[%s] error %v: %s", c.engineID(), rc, msg)
	} else {
		msg = shortenTraceback(msg)
	}
	return &TransactionError{Code: werr.Code, Msg: msg, err: err}
}

// jsonMap sends a call expecting a JSON object in reply.
func (c *Client) jsonMap(ctx context.Context, verb string, params ...param) (map[string]any, error) {
	resp, err := c.transaction(ctx, call{verb: verb, params: params, context: jsonContext})
	if err != nil {
		return nil, err
	}
	return resp.Map(), nil
}

// jsonValue sends a call expecting any JSON value in reply.
func (c *Client) jsonValue(ctx context.Context, verb string, params ...param) (any, error) {
	resp, err := c.transaction(ctx, call{verb: verb, params: params, context: jsonContext})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// exec sends a call, discarding the reply.
func (c *Client) exec(ctx context.Context, verb string, params ...param) error {
	_, err := c.transaction(ctx, call{verb: verb, params: params, context: jsonContext})
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
