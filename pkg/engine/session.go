package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
)

// IsOpen reports whether a session id is established.
func (c *Client) IsOpen() bool {
	return c.tsid != ""
}

// RendermanPrefsDir returns the standard Tractor preferences directory of
// the current platform.
func RendermanPrefsDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(getenv("HOME", os.TempDir()), "Library", "Preferences", "Pixar", "Tractor")
	case "windows":
		return filepath.Join(getenv("APPDATA", os.TempDir()), "Pixar", "Tractor")
	default:
		return filepath.Join(getenv("HOME", os.TempDir()), ".pixarPrefs", "Tractor")
	}
}

// SessionFilename returns a session file path unique to an application,
// engine, client host and user. If baseDir is empty, RendermanPrefsDir is
// used.
func SessionFilename(app, engineHostname string, port int, clientHostname, user, baseDir string) string {
	if baseDir == "" {
		baseDir = RendermanPrefsDir()
	}
	dir := filepath.Join(baseDir, "sites", engineHostname+"@"+strconv.Itoa(port))
	return filepath.Join(dir, app+"."+clientHostname+"."+user+".session")
}

// PrefsDir returns the preferences directory of the client's engine.
func (c *Client) PrefsDir() string {
	return filepath.Join(RendermanPrefsDir(), "sites", c.hostname+"@"+strconv.Itoa(c.port))
}

type sessionFile struct {
	Tsid string `json:"tsid"`
}

// CanReuseSession reports whether the session file holds a session id the
// engine still accepts. If it does, the client adopts it.
func (c *Client) CanReuseSession(ctx context.Context) bool {
	if c.sessionFilename == "" {
		return false
	}
	b, err := os.ReadFile(c.sessionFilename)
	if err != nil {
		c.dprint("no session file", "file", c.sessionFilename, "error", err)
		return false
	}
	var sf sessionFile
	if err := json.Unmarshal(b, &sf); err != nil || sf.Tsid == "" {
		c.dprint("unusable session file", "file", c.sessionFilename, "error", err)
		return false
	}
	// probe with the stored id in place of any current one
	prev := c.tsid
	c.tsid = sf.Tsid
	_, err = c.transaction(ctx, call{
		verb:      nsControl,
		params:    []param{{"q", "status"}},
		context:   jsonContext,
		skipLogin: true,
	})
	if err != nil {
		c.tsid = prev
		c.dprint("session id cannot be reused", "tsid", sf.Tsid, "error", err)
		return false
	}
	c.dprint("reusing session id", "tsid", sf.Tsid)
	return true
}

// UsesPasswords reports whether the engine requires passwords.
func (c *Client) UsesPasswords(ctx context.Context) bool {
	if err := c.transport(); err != nil {
		return false
	}
	required := c.conn.PasswordRequired(ctx)
	c.dprint("engine password check", "required", required)
	return required
}

// NeedsPassword reports whether a password must be set before Open can
// succeed: no session can be reused, the engine requires passwords and
// none has been given.
func (c *Client) NeedsPassword(ctx context.Context) bool {
	if err := c.transport(); err != nil {
		return false
	}
	if c.CanReuseSession(ctx) || !c.UsesPasswords(ctx) || c.password != "" {
		return false
	}
	return true
}

var loginFailed = regexp.MustCompile(`login as '.*' failed`)

// Open establishes a session with the engine. An open session is kept
// unless the client was created WithNewSession. Without a password, a
// session id stored in the session file is reused if the engine accepts
// it. A newly created session id is written to the session file.
func (c *Client) Open(ctx context.Context) error {
	c.dprint("open", "newSession", c.newSession, "sessionFile", c.sessionFilename)
	if !c.newSession && c.conn != nil && c.IsOpen() {
		return nil
	}
	if err := c.transport(); err != nil {
		return err
	}
	if c.password == "" {
		if !c.newSession && c.CanReuseSession(ctx) {
			return nil
		}
		if c.conn.PasswordRequired(ctx) {
			return fmt.Errorf("%w: Password required for %s@%s", ErrPasswordRequired, c.user, c.engineID())
		}
	}
	data, err := c.conn.Login(ctx, c.user, c.password, c.xheaders()...)
	if err != nil {
		if loginFailed.MatchString(err.Error()) {
			return fmt.Errorf("%w: Unable to log in as user %s on engine %s: %w", ErrOpenConn, c.user, c.engineID(), err)
		}
		return fmt.Errorf("%w: Engine on %s is not reachable: %w", ErrOpenConn, c.engineID(), err)
	}
	c.tsid, _ = data["tsid"].(string)
	c.dprint("new session", "tsid", c.tsid)
	if c.sessionFilename != "" {
		return c.writeSessionFile()
	}
	return nil
}

func (c *Client) writeSessionFile() error {
	if err := os.MkdirAll(filepath.Dir(c.sessionFilename), 0o755); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCreateSessionDirectory, filepath.Dir(c.sessionFilename), err)
	}
	content := fmt.Sprintf("{\"tsid\": %q}\n", c.tsid)
	if err := os.WriteFile(c.sessionFilename, []byte(content), 0o600); err != nil {
		return fmt.Errorf("%w: problem writing session file '%s': %w", ErrCreateSessionFile, c.sessionFilename, err)
	}
	c.dprint("wrote session file", "file", c.sessionFilename)
	return nil
}

// Close logs out of the engine. Closing a client without a session is a
// no-op. The session id is cleared only if the logout succeeds.
func (c *Client) Close(ctx context.Context) error {
	if !c.IsOpen() {
		c.dprint("no session id established, connection considered closed")
		return nil
	}
	_, err := c.transaction(ctx, call{
		verb:    nsMonitor,
		params:  []param{{"q", "logout"}, {"user", c.user}},
		context: "logout",
	})
	if err != nil {
		return err
	}
	c.tsid = ""
	return nil
}
