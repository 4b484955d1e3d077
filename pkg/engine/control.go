package engine

import (
	"context"
	"errors"
	"strings"
)

func (c *Client) setBladeAttribute(ctx context.Context, name, ipaddr, attribute string, value any) error {
	return c.exec(ctx, nsControl, param{"q", "battribute"}, param{"b", bladeID(name, ipaddr)}, param{attribute, value})
}

// NimbyBlade restricts a blade to the jobs of allow, a user name or
// host, or to local jobs if allow is empty.
func (c *Client) NimbyBlade(ctx context.Context, name, ipaddr, allow string) error {
	var v any = 1
	if allow != "" {
		v = allow
	}
	return c.setBladeAttribute(ctx, name, ipaddr, "nimby", v)
}

// UnnimbyBlade lets a blade accept jobs from any user again.
func (c *Client) UnnimbyBlade(ctx context.Context, name, ipaddr string) error {
	return c.setBladeAttribute(ctx, name, ipaddr, "nimby", 0)
}

// TraceBlade returns the engine's plain text dispatch trace for a blade.
func (c *Client) TraceBlade(ctx context.Context, name, ipaddr string) (string, error) {
	resp, err := c.transaction(ctx, call{
		verb:   nsControl,
		params: []param{{"q", "tracer"}, {"t", bladeID(name, ipaddr)}, {"fmt", "plain"}},
	})
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

// DelistBlade removes a blade's entry from the database.
func (c *Client) DelistBlade(ctx context.Context, name, ipaddr string) error {
	return c.exec(ctx, nsBTrack, param{"q", "delist"}, param{"id", bladeID(name, ipaddr)})
}

func (c *Client) reconfigure(ctx context.Context, file string) error {
	params := []param{{"q", "reconfigure"}}
	if file != "" {
		params = append(params, param{"file", file})
	}
	return c.exec(ctx, nsControl, params...)
}

// ReloadLimitsConfig makes the engine reload limits.config.
func (c *Client) ReloadLimitsConfig(ctx context.Context) error {
	return c.reconfigure(ctx, LimitsConfig)
}

// ReloadCrewsConfig makes the engine reload crews.config.
func (c *Client) ReloadCrewsConfig(ctx context.Context) error {
	return c.reconfigure(ctx, CrewsConfig)
}

// ReloadBladeConfig makes the engine reload blade.config.
func (c *Client) ReloadBladeConfig(ctx context.Context) error {
	return c.reconfigure(ctx, BladeConfig)
}

// ReloadTractorConfig makes the engine reload tractor.config.
func (c *Client) ReloadTractorConfig(ctx context.Context) error {
	return c.reconfigure(ctx, TractorConfig)
}

// ReloadAllConfigs makes the engine reload all of its configuration files.
func (c *Client) ReloadAllConfigs(ctx context.Context) error {
	return c.reconfigure(ctx, "")
}

// QueueStats returns the engine's status including queue statistics.
func (c *Client) QueueStats(ctx context.Context) (map[string]any, error) {
	return c.jsonMap(ctx, nsControl, param{"q", "status"}, param{"qlen", "1"}, param{"enumq", "1"})
}

// Ping verifies that the session is valid.
func (c *Client) Ping(ctx context.Context) (map[string]any, error) {
	return c.jsonMap(ctx, nsControl, param{"q", "status"})
}

// DBReconnect makes the engine reconnect to its database server.
func (c *Client) DBReconnect(ctx context.Context) (map[string]any, error) {
	return c.jsonMap(ctx, nsControl, param{"q", "dbreconnect"})
}

var emptyQueueMessages = []string{
	"error 404:",
	"job queue is empty",
	"no dispatchable tasks",
	"no remaining queueable commands",
}

// NextCmd requests the next command to run, as a blade does. If probe is
// set the command is only looked up, not dispatched. An empty queue
// yields an empty list.
func (c *Client) NextCmd(ctx context.Context, probe bool, extra map[string]string) (any, error) {
	params := []param{{"q", "nextcmd"}}
	if probe {
		params = append(params, param{"onlyprobe", 1})
	}
	for _, k := range sortedKeys(extra) {
		params = append(params, param{k, extra[k]})
	}
	result, err := c.jsonValue(ctx, nsTask, params...)
	var terr *TransactionError
	if errors.As(err, &terr) {
		for _, m := range emptyQueueMessages {
			if strings.Contains(terr.Msg, m) {
				return []any{}, nil
			}
		}
	}
	return result, err
}

// GetConfig returns one of the engine's configuration files, for example
// BladeConfig.
func (c *Client) GetConfig(ctx context.Context, filename string) (any, error) {
	return c.jsonValue(ctx, nsConfig, param{"q", "get"}, param{"file", filename})
}
