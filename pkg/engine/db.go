package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DBExec runs an SQL statement on the engine's database server and
// returns the result rows.
func (c *Client) DBExec(ctx context.Context, sql string) ([]any, error) {
	c.dprint("dbexec", "sql", sql)
	result, err := c.jsonMap(ctx, nsDB, param{"q", sql})
	if err != nil {
		return nil, err
	}
	// psql client errors are reported through rc, tractorselect errors
	// such as bad search clauses through rows
	rc := 1
	if v, ok := result["rc"].(float64); ok {
		rc = int(v)
	}
	rows, isList := result["rows"].([]any)
	c.dprint("dbexec result", "rc", rc, "isError", !isList)

	var msg string
	switch {
	case rc != 0:
		msg, _ = result["msg"].(string)
		if msg == "" {
			msg = fmt.Sprintf("postgres server did not specify an error message for dbexec(%s)", sql)
		}
	case !isList:
		msg = fmt.Sprint(result["rows"])
	default:
		return rows, nil
	}
	if c.debug {
		msg = "error message from postgres server:\n---------- begin error ----------\n" +
			msg + "----------- end error -----------"
	} else {
		lines := strings.Split(strings.TrimSpace(msg), "\n")
		msg = lines[len(lines)-1]
	}
	return nil, fmt.Errorf("%w: %s", ErrDBExec, msg)
}

// SelectOptions qualify a Select query.
type SelectOptions struct {
	Columns []string
	SortBy  []string
	// Limit is the maximum number of rows; 0 means no limit.
	Limit int
	// Archive searches retired jobs instead of active ones.
	Archive bool
	// Aliases map alias names to search clauses.
	Aliases map[string]string
}

// Select returns the rows of table matching the natural language where
// clause, for example Select(ctx, "jobs", "owner=alice and active", ...).
func (c *Client) Select(ctx context.Context, table, where string, opts SelectOptions) ([]any, error) {
	limit := "NULL"
	if opts.Limit > 0 {
		limit = strconv.Itoa(opts.Limit)
	}
	archive := "f"
	if opts.Archive {
		archive = "t"
	}
	sql := fmt.Sprintf("tractorselect('%s', '%s', '%s', '%s', %s, '%s', '%s')",
		table,
		sqlEscape(where),
		strings.Join(opts.Columns, ","),
		strings.Join(opts.SortBy, ","),
		limit,
		archive,
		sqlEscape(aliasRepr(opts.Aliases)),
	)
	return c.DBExec(ctx, sql)
}

func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// aliasRepr formats aliases the way tractorselect parses them.
func aliasRepr(aliases map[string]string) string {
	if aliases == nil {
		return "None"
	}
	keys := sortedKeys(aliases)
	items := make([]string, len(keys))
	for i, k := range keys {
		items[i] = "'" + k + "': '" + aliases[k] + "'"
	}
	return "{" + strings.Join(items, ", ") + "}"
}

// GetJobDump returns a job's database dump in format, "JSON" by default.
func (c *Client) GetJobDump(ctx context.Context, jid int, format string) (any, error) {
	if format == "" {
		format = "JSON"
	}
	rows, err := c.DBExec(ctx, fmt.Sprintf("TractorJobDump(%d, '%s')", jid, format))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0], nil
}
