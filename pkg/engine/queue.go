package engine

import "context"

// setJobAttribute sets a job attribute; extra parameters with a nil value
// are left out.
func (c *Client) setJobAttribute(ctx context.Context, jid int, attribute string, value any, extra ...param) error {
	params := []param{{"q", "jattr"}, {"jid", jid}, {"set_" + attribute, value}}
	for _, p := range extra {
		if p.value != nil {
			params = append(params, p)
		}
	}
	return c.exec(ctx, nsQueue, params...)
}

// SetJobAttribute sets a job's attribute. List values are sent comma
// joined.
func (c *Client) SetJobAttribute(ctx context.Context, jid int, key string, value any) error {
	return c.setJobAttribute(ctx, jid, key, value)
}

// SetJobPriority sets a job's priority.
func (c *Client) SetJobPriority(ctx context.Context, jid int, priority float64) error {
	return c.setJobAttribute(ctx, jid, "priority", priority)
}

// SetJobCrews sets a job's crew list.
func (c *Client) SetJobCrews(ctx context.Context, jid int, crews []string) error {
	return c.setJobAttribute(ctx, jid, "crews", crews)
}

// PauseJob stops the dispatch of a job's tasks.
func (c *Client) PauseJob(ctx context.Context, jid int) error {
	return c.setJobAttribute(ctx, jid, "pause", 1)
}

// UnpauseJob resumes the dispatch of a paused job.
func (c *Client) UnpauseJob(ctx context.Context, jid int) error {
	return c.setJobAttribute(ctx, jid, "pause", 0)
}

// LockJob locks a job, with an optional note.
func (c *Client) LockJob(ctx context.Context, jid int, note string) error {
	var n any
	if note != "" {
		n = note
	}
	return c.setJobAttribute(ctx, jid, "lock", 1, param{"note", n})
}

// UnlockJob unlocks a locked job.
func (c *Client) UnlockJob(ctx context.Context, jid int) error {
	return c.setJobAttribute(ctx, jid, "lock", 0)
}

// DelayJob holds a job until afterTime, given in a form the engine
// accepts, for example "12 14 16:24".
func (c *Client) DelayJob(ctx context.Context, jid int, afterTime string) error {
	return c.setJobAttribute(ctx, jid, "afterTime", afterTime)
}

// UndelayJob clears a job's after-time.
func (c *Client) UndelayJob(ctx context.Context, jid int) error {
	return c.setJobAttribute(ctx, jid, "afterTime", "0")
}

// InterruptJob kills a job's running commands and pauses it.
func (c *Client) InterruptJob(ctx context.Context, jid int) error {
	return c.exec(ctx, nsQueue, param{"q", "jinterrupt"}, param{"jid", jid})
}

// RestartJob reruns a job from the start.
func (c *Client) RestartJob(ctx context.Context, jid int) error {
	return c.exec(ctx, nsQueue, param{"q", "jrestart"}, param{"jid", jid})
}

// RetryAllActiveInJob retries a job's active tasks.
func (c *Client) RetryAllActiveInJob(ctx context.Context, jid int) error {
	return c.exec(ctx, nsQueue, param{"q", "jretry"}, param{"tsubset", "active"}, param{"jid", jid})
}

// RetryAllErrorsInJob retries a job's failed tasks.
func (c *Client) RetryAllErrorsInJob(ctx context.Context, jid int) error {
	return c.exec(ctx, nsQueue, param{"q", "jretry"}, param{"tsubset", "error"}, param{"jid", jid})
}

// SkipAllErrorsInJob skips a job's failed tasks.
func (c *Client) SkipAllErrorsInJob(ctx context.Context, jid int) error {
	return c.exec(ctx, nsQueue, param{"q", "tskip"}, param{"tsubset", "error"}, param{"jid", jid})
}

// DeleteJob retires a job to the archive.
func (c *Client) DeleteJob(ctx context.Context, jid int) error {
	return c.exec(ctx, nsQueue, param{"q", "jretire"}, param{"jid", jid})
}

// UndeleteJob restores a retired job.
func (c *Client) UndeleteJob(ctx context.Context, jid int) error {
	return c.exec(ctx, nsQueue, param{"q", "jrestore"}, param{"jid", jid})
}

// RetryTask reruns a task.
func (c *Client) RetryTask(ctx context.Context, jid, tid int) error {
	return c.exec(ctx, nsQueue, param{"q", "tretry"}, param{"jid", jid}, param{"tid", tid})
}

// ResumeTask retries a task, resuming from its last checkpoint.
func (c *Client) ResumeTask(ctx context.Context, jid, tid int) error {
	return c.exec(ctx, nsQueue, param{"q", "tretry"}, param{"recover", 1}, param{"jid", jid}, param{"tid", tid})
}

// KillTask interrupts a task's running commands.
func (c *Client) KillTask(ctx context.Context, jid, tid int) error {
	return c.exec(ctx, nsQueue, param{"q", "jinterrupt"}, param{"jid", jid}, param{"tid", tid})
}

// SkipTask marks a task done without running it.
func (c *Client) SkipTask(ctx context.Context, jid, tid int) error {
	return c.exec(ctx, nsQueue, param{"q", "tskip"}, param{"jid", jid}, param{"tid", tid})
}

// SetCommandAttribute sets a command's attribute. List values are sent
// comma joined.
func (c *Client) SetCommandAttribute(ctx context.Context, jid, cid int, key string, value any) error {
	return c.exec(ctx, nsQueue, param{"q", "cattr"}, param{"jid", jid}, param{"cid", cid}, param{"set_" + key, value})
}

// EjectBlade retries the tasks active on a blade.
func (c *Client) EjectBlade(ctx context.Context, name, ipaddr string) error {
	return c.exec(ctx, nsQueue, param{"q", "ejectall"}, param{"blade", bladeID(name, ipaddr)})
}

func bladeID(name, ipaddr string) string {
	return name + "/" + ipaddr
}
