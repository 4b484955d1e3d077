package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"
)

const jobYAML = `
title: comp
subtasks:
  - title: render
    argv: [prman, shot.rib]
`

func TestMainRender(t *testing.T) {
	path := writeFile(t, "job.yaml", jobYAML)
	out, err := run(t, []string{"render", path})
	require.NoError(t, err)
	want := `Job -title {comp} -subtasks {
  Task {render} -cmds {
    RemoteCmd -argv {{prman} {shot.rib}}
  }
}
`
	require.Equal(t, want, out)
}

func TestMainSession(t *testing.T) {
	fe := newTestEngine(t)

	out, err := run(t, []string{"ping"})
	require.NoError(t, err)
	require.Equal(t, "{\n  \"msg\": \"ok\",\n  \"rc\": 0\n}\n", out)
	require.Equal(t, 1, fe.count("monitor login"))

	// the saved session is reused
	out, err = run(t, []string{"pause", "7"})
	require.NoError(t, err)
	require.Equal(t, "", out)
	require.Equal(t, 1, fe.count("monitor login"))
	req := fe.last()
	require.Equal(t, "queue jattr", req.route)
	require.Equal(t, "7", req.query["jid"])
	require.Equal(t, "1", req.query["set_pause"])
	require.Equal(t, "s1", req.query["tsid"])

	out, err = run(t, []string{"logout"})
	require.NoError(t, err)
	require.Equal(t, "", out)
	require.Equal(t, "monitor logout", fe.last().route)
}

func TestMainSpool(t *testing.T) {
	fe := newTestEngine(t)
	path := writeFile(t, "job.yaml", jobYAML)

	out, err := run(t, []string{"spool", path, "--block"})
	require.NoError(t, err)
	require.Equal(t, "42\n", out)
	req := fe.last()
	require.Equal(t, "spool", req.route)
	require.Equal(t, "spool", req.query["blocking"])
	require.Contains(t, req.body, "Job -title {comp}")
	require.Equal(t, 0, fe.count("monitor login"))

	raw := writeFile(t, "job.alf", "Job -title {raw}")
	out, err = run(t, []string{"spool", raw, "--raw"})
	require.NoError(t, err)
	require.Equal(t, "{\"rc\": 0, \"jid\": 42}\n", out)
	require.Equal(t, "Job -title {raw}", strings.TrimSpace(fe.last().body))
}

func TestMainBladeAndReload(t *testing.T) {
	fe := newTestEngine(t)

	_, err := run(t, []string{"nimby", "rack1", "10.0.0.9"})
	require.NoError(t, err)
	req := fe.last()
	require.Equal(t, "ctrl battribute", req.route)
	require.Equal(t, "1", req.query["nimby"])

	_, err = run(t, []string{"nimby", "rack1", "10.0.0.9", "--allow", "bob"})
	require.NoError(t, err)
	require.Equal(t, "bob", fe.last().query["nimby"])

	_, err = run(t, []string{"reload", "crews.config"})
	require.NoError(t, err)
	req = fe.last()
	require.Equal(t, "ctrl reconfigure", req.route)
	require.Equal(t, "crews.config", req.query["file"])

	_, err = run(t, []string{"reload", "colours.config"})
	require.Error(t, err)
}

func TestMainEngineError(t *testing.T) {
	newTestEngine(t)
	_, err := run(t, []string{"delete", "7"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to delete job 7")
}

func run(t *testing.T, args []string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	var w io.Writer = buf
	opts := []kong.Option{
		kong.Exit(exitFatalFn(t)),
		kong.Bind(&w),
	}
	parser, err := kong.New(&app{}, opts...)
	if err != nil {
		return "", fmt.Errorf("kong.New: %w", err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", fmt.Errorf("kong.Parser.Parse: %w", err)
	}
	err = kctx.Run()
	if err != nil {
		return "", fmt.Errorf("kong.Context.Run: %w", err)
	}
	return buf.String(), nil
}

func exitFatalFn(t *testing.T) func(c int) {
	t.Helper()
	return func(_ int) {
		t.Helper()
		t.Fatalf("unexpected exit by arg parser")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type request struct {
	route string
	query map[string]string
	body  string
}

// testEngine answers the requests the CLI makes by route, "<verb> <q>".
type testEngine struct {
	mu       sync.Mutex
	requests []request
}

var testRoutes = map[string]string{
	"monitor loginscheme": `{"validation": "none"}`,
	"monitor login":       `{"rc": 0, "tsid": "s1"}`,
	"monitor logout":      `{"rc": 0, "msg": "logged out"}`,
	"ctrl status":         `{"rc": 0, "msg": "ok"}`,
	"ctrl battribute":     `{"rc": 0, "msg": "blade updated"}`,
	"ctrl reconfigure":    `{"rc": 0, "msg": "reloaded"}`,
	"queue jattr":         `{"rc": 0, "msg": "job updated"}`,
	"spool":               `{"rc": 0, "jid": 42}`,
}

// newTestEngine starts a test engine and points the CLI at it. The home
// directory is replaced so that session files stay within the test.
func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	te := &testEngine{}
	ts := httptest.NewServer(http.HandlerFunc(te.serve))
	t.Cleanup(ts.Close)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TRACTOR_ENGINE", strings.TrimPrefix(ts.URL, "http://"))
	t.Setenv("TRACTOR_USER", "alice")
	t.Setenv("TRACTOR_CONFIG", filepath.Join(home, "absent.toml"))
	return te
}

func (te *testEngine) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	verb := strings.TrimPrefix(r.URL.Path, "/Tractor/")
	query := map[string]string{}
	for k, v := range r.URL.Query() {
		query[k] = v[0]
	}
	route := verb + " " + query["q"]
	if verb == "spool" {
		route = verb
	}
	te.mu.Lock()
	te.requests = append(te.requests, request{route: route, query: query, body: string(body)})
	te.mu.Unlock()

	reply, ok := testRoutes[route]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"rc": 404, "msg": "no such request"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, reply)
}

func (te *testEngine) count(route string) int {
	te.mu.Lock()
	defer te.mu.Unlock()
	n := 0
	for _, r := range te.requests {
		if r.route == route {
			n++
		}
	}
	return n
}

func (te *testEngine) last() request {
	te.mu.Lock()
	defer te.mu.Unlock()
	return te.requests[len(te.requests)-1]
}
