package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Subscribe fetches the next subscription message for jids, or for all
// jobs if none are given. The call blocks until the engine has news.
func (c *Client) Subscribe(ctx context.Context, jids ...int) (map[string]any, error) {
	if len(jids) == 0 {
		jids = []int{0}
	}
	return c.jsonMap(ctx, nsMonitor, param{"q", "subscribe"}, param{"jids", jids})
}

var taskCommandColumns = []string{"cid", "state", "service", "tags", "type", "t0", "t1", "argv"}

// GetTaskCommands returns a text table of the commands of a task, or an
// empty string if the engine reports none.
func (c *Client) GetTaskCommands(ctx context.Context, jid, tid int) (string, error) {
	result, err := c.jsonMap(ctx, nsMonitor, param{"q", "taskdetails"}, param{"jid", jid}, param{"tid", tid})
	if err != nil {
		return "", err
	}
	cmds, ok := result["cmds"].([]any)
	if !ok {
		return "", nil
	}
	headings := []string{"cid", "state", "service", "tags", "type", "start", "stop", "argv"}
	underline := make([]string, len(headings))
	for i, h := range headings {
		underline[i] = strings.Repeat("=", len(h))
	}
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 1, ' ', 0)
	fmt.Fprintln(w, strings.Join(headings, "\t"))
	fmt.Fprintln(w, strings.Join(underline, "\t"))
	for _, cmd := range cmds {
		m, _ := cmd.(map[string]any)
		cells := make([]string, len(taskCommandColumns))
		for i, col := range taskCommandColumns {
			cells[i] = cell(m[col])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		s := make([]string, len(v))
		for i, e := range v {
			s[i] = cell(e)
		}
		return strings.Join(s, " ")
	default:
		return fmt.Sprint(v)
	}
}

// GetTaskLog returns the concatenated command logs of a task. Logs are
// fetched from the URIs the engine redirects to; a log that cannot be
// fetched is replaced by a message saying so.
func (c *Client) GetTaskLog(ctx context.Context, jid, tid int, owner string) (string, error) {
	params := []param{{"q", "tasklogs"}, {"jid", jid}, {"tid", tid}}
	if owner != "" {
		params = append(params, param{"owner", owner})
	}
	info, err := c.jsonMap(ctx, nsMonitor, params...)
	if err != nil {
		return "", err
	}
	uris, ok := info["LoggingRedirect"].([]any)
	if !ok {
		return "", nil
	}
	var sb strings.Builder
	for _, u := range uris {
		uri := fmt.Sprint(u)
		if !strings.HasPrefix(uri, "http://") {
			uri = "http://" + c.engineID() + uri
		}
		log, err := c.fetchLog(ctx, uri)
		if err != nil {
			log = "Exception received while fetching log: " + err.Error()
		}
		sb.WriteString(log)
	}
	return sb.String(), nil
}

func (c *Client) fetchLog(ctx context.Context, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: %s", ErrUnexpectedReply, uri, resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FetchJobsAsJSON returns the engine's job list, optionally restricted
// by a named filter.
func (c *Client) FetchJobsAsJSON(ctx context.Context, filter string) (map[string]any, error) {
	params := []param{{"q", "jobs"}}
	if filter != "" {
		// the filter names a file on the engine, so it is escaped twice
		params = append(params, param{"filter", quote(filter + ".joblist")})
	}
	return c.jsonMap(ctx, nsMonitor, params...)
}

// FetchJobDetails returns a job's details, with its task graph and notes
// if asked for.
func (c *Client) FetchJobDetails(ctx context.Context, jid int, graph, notes bool) (map[string]any, error) {
	return c.jsonMap(ctx, nsMonitor,
		param{"q", "jobdetails"}, param{"jid", jid}, param{"graph", graph}, param{"notes", notes}, param{"flat", 1})
}

// FetchBladesAsJSON returns the status of all blades, optionally
// restricted by a named filter.
func (c *Client) FetchBladesAsJSON(ctx context.Context, filter string) (map[string]any, error) {
	params := []param{{"q", "blades"}}
	if filter != "" {
		params = append(params, param{"filter", filter + ".bladelist"})
	}
	return c.jsonMap(ctx, nsMonitor, params...)
}
