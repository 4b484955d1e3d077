package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/juliaogris/tractor/pkg/author"
	"github.com/juliaogris/tractor/pkg/wire"
)

// SpoolOptions qualify a spooled job.
type SpoolOptions struct {
	// Hostname is the spooling host, the local host name by default.
	Hostname string
	// Filename is the job file the job text came from.
	Filename string
	// Owner defaults to the client's user, then the current OS user.
	Owner string
	// Format is "JSON" for JSON job text; the default is the job grammar.
	Format string
	// SkipLogin spools without opening a session.
	SkipLogin bool
	// Block waits until the engine has processed the job.
	Block bool
}

// Spool submits job text to the engine and returns the engine's raw reply.
func (c *Client) Spool(ctx context.Context, jobText string, opts SpoolOptions) (string, error) {
	hostname := opts.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	owner := opts.Owner
	if owner == "" {
		owner = c.user
	}
	if owner == "" {
		if u, err := user.Current(); err == nil {
			owner = u.Username
		}
	}
	filename := opts.Filename
	if filename == "" {
		filename = "no filename specified"
	}
	cwd, _ := os.Getwd()
	if abs, err := filepath.Abs(cwd); err == nil {
		cwd = abs
	}
	params := []param{
		{"spvers", SpoolVersion},
		{"hnm", hostname},
		{"jobOwner", owner},
		{"jobFile", filename},
		{"cwd", strings.ReplaceAll(cwd, `\`, "/")},
	}
	if opts.Block {
		params = append(params, param{"blocking", "spool"})
	}
	contentType := "application/tractor-spool"
	if opts.Format == "JSON" {
		contentType += "-json"
	}
	resp, err := c.transaction(ctx, call{
		verb:      nsSpool,
		params:    params,
		payload:   jobText,
		headers:   []wire.Header{{Name: "Content-Type", Value: contentType}},
		skipLogin: opts.SkipLogin,
	})
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

// SpoolJob renders a job and spools it without a session, returning the
// new job's id. All failures wrap author.ErrSpool.
func (c *Client) SpoolJob(ctx context.Context, job author.Element, opts SpoolOptions) (int, error) {
	text, err := author.Render(job)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", author.ErrSpool, err)
	}
	opts.SkipLogin = true
	opts.Format = ""
	reply, err := c.Spool(ctx, text, opts)
	if err != nil {
		return 0, fmt.Errorf("%w: Spool error: %w", author.ErrSpool, err)
	}
	var result struct {
		Jid *int `json:"jid"`
	}
	if err := json.Unmarshal([]byte(reply), &result); err != nil {
		return 0, fmt.Errorf("%w: %w: %w", author.ErrSpool, ErrUnexpectedReply, err)
	}
	if result.Jid == nil {
		return 0, fmt.Errorf("%w: %w: no jid in %q", author.ErrSpool, ErrUnexpectedReply, reply)
	}
	return *result.Jid, nil
}
