// Tractor is a command line client for the Tractor render farm engine.
//
// It renders and spools job description files and runs queue and blade
// control operations on the engine. The CLI supports the following
// commands:
//
//   - render: print the job script of a YAML job file.
//   - spool: submit a job file to the engine.
//   - ping, stats, jobs, blades: query the engine.
//   - pause, unpause, interrupt, restart, delete, retry, skip: control jobs
//     and tasks.
//   - nimby, unnimby, eject, delist: control blades.
//   - reload: make the engine reload its configuration.
//   - logout: end the saved session.
//
// Sessions are saved to a session file in the Tractor preferences
// directory and reused by later invocations until logout.
//
// The engine and user are read from the client configuration file
// ~/.config/tractor/client.toml and can be overridden with flags or the
// following environment variables, which may also be set in a .env file:
//
//   - TRACTOR_ENGINE: the engine as host[:port].
//   - TRACTOR_USER: the user name.
//   - TRACTOR_PASSWORD: the password, if the engine requires one.
//   - TRACTOR_DEBUG: log debug messages.
//
// Example usage after environment setup:
//
//	tractor render shot.yaml
//	tractor spool shot.yaml
//	tractor pause 1042
//	tractor nimby rack1 10.0.0.9
//	tractor [COMMAND] --help
package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/juliaogris/tractor/pkg/author"
	"github.com/juliaogris/tractor/pkg/config"
	"github.com/juliaogris/tractor/pkg/engine"
	"github.com/juliaogris/tractor/pkg/jobfile"
)

const description = "Tractor is a command line client for the Tractor render farm engine."

type app struct {
	Render    renderCmd    `cmd:"" help:"Print the job script of a job file."`
	Spool     spoolCmd     `cmd:"" help:"Spool a job file."`
	Ping      pingCmd      `cmd:"" help:"Check the session with the engine."`
	Stats     statsCmd     `cmd:"" help:"Print queue statistics."`
	Jobs      jobsCmd      `cmd:"" help:"List jobs."`
	Blades    bladesCmd    `cmd:"" help:"List blades."`
	Pause     pauseCmd     `cmd:"" help:"Pause a job."`
	Unpause   unpauseCmd   `cmd:"" help:"Unpause a job."`
	Interrupt interruptCmd `cmd:"" help:"Interrupt a job."`
	Restart   restartCmd   `cmd:"" help:"Restart a job."`
	Delete    deleteCmd    `cmd:"" help:"Delete a job."`
	Retry     retryCmd     `cmd:"" help:"Retry a task."`
	Skip      skipCmd      `cmd:"" help:"Skip a task."`
	Nimby     nimbyCmd     `cmd:"" help:"Nimby a blade."`
	Unnimby   unnimbyCmd   `cmd:"" help:"Unnimby a blade."`
	Eject     ejectCmd     `cmd:"" help:"Retry the active tasks of a blade."`
	Delist    delistCmd    `cmd:"" help:"Remove a blade from the database."`
	Reload    reloadCmd    `cmd:"" help:"Make the engine reload its configuration."`
	Logout    logoutCmd    `cmd:"" help:"End the saved session."`
}

func main() {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "cannot load .env:", err)
		os.Exit(1)
	}
	var writer io.Writer = os.Stdout
	opts := []kong.Option{
		kong.Bind(&writer),
		kong.Description(description),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	}
	kctx := kong.Parse(&app{}, opts...)
	kctx.FatalIfErrorf(kctx.Run())
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// output is the destination of a command's output.
type output struct {
	w io.Writer // can be overridden for testing
}

// AfterApply is called by [kong] after flag validation and before a
// command's Run method.
//
// The pointer to the io.Writer is required to keep the io.Writer type when
// passing through an `any` parameter on the [kong.Bind] function.
func (o *output) AfterApply(w *io.Writer) error {
	o.w = cmp.Or(*w, io.Writer(os.Stdout))
	return nil
}

type cmd struct {
	output
	Engine   string `short:"e" help:"Engine as host[:port]." env:"TRACTOR_ENGINE"`
	User     string `short:"u" help:"User name." env:"TRACTOR_USER"`
	Password string `help:"Password, if the engine requires one." env:"TRACTOR_PASSWORD"`
	Config   string `help:"Client configuration file, ~/.config/tractor/client.toml if not set." env:"TRACTOR_CONFIG"`
	Debug    bool   `help:"Log debug messages." env:"TRACTOR_DEBUG"`

	client *engine.Client
}

// AfterApply creates the engine client from the configuration file and
// flags. The session file defaults to one per engine and user in the
// Tractor preferences directory.
func (c *cmd) AfterApply(w *io.Writer) error {
	if err := c.output.AfterApply(w); err != nil {
		return err
	}
	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	opts, err := cfg.ClientOptions()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	level := slog.LevelInfo
	if c.Debug || cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	opts = append(opts, engine.WithLogger(logger))
	if c.Engine != "" {
		host, port, err := engine.HostPortForEngine(c.Engine)
		if err != nil {
			return err
		}
		opts = append(opts, engine.WithEngine(host, port))
	}
	if c.User != "" {
		opts = append(opts, engine.WithUser(c.User))
	}
	if c.Password != "" {
		opts = append(opts, engine.WithPassword(c.Password))
	}
	if c.Debug {
		opts = append(opts, engine.WithDebug(true))
	}
	client, err := engine.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	if cfg.SessionFile == "" {
		clientHost, _ := os.Hostname()
		filename := engine.SessionFilename("tractor", client.Hostname(), client.Port(), clientHost, client.User(), "")
		if err := client.SetParam("sessionFilename", filename); err != nil {
			return err
		}
	}
	c.client = client
	return nil
}

func (c *cmd) printJSON(v any) error {
	enc := json.NewEncoder(c.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to print reply: %w", err)
	}
	return nil
}

type renderCmd struct {
	output
	File string `arg:"" required:"" type:"existingfile" help:"YAML job file."`
}

// Run is called by [kong] when the CLI arguments contain the `render` command.
func (c *renderCmd) Run() error {
	job, err := jobfile.Load(c.File)
	if err != nil {
		return err
	}
	script, err := author.Render(job)
	if err != nil {
		return fmt.Errorf("failed to render job: %w", err)
	}
	_, err = fmt.Fprintln(c.w, script)
	return err
}

type spoolCmd struct {
	cmd
	File  string `arg:"" required:"" type:"existingfile" help:"YAML job file, or a job script with --raw."`
	Block bool   `help:"Wait until the engine has processed the job."`
	Raw   bool   `help:"Spool the file as a job script."`
}

// Run is called by [kong] when the CLI arguments contain the `spool` command.
func (c *spoolCmd) Run() error {
	ctx := context.Background()
	abs, err := filepath.Abs(c.File)
	if err != nil {
		return err
	}
	opts := engine.SpoolOptions{Filename: abs, Block: c.Block}
	if c.Raw {
		text, err := os.ReadFile(c.File)
		if err != nil {
			return err
		}
		reply, err := c.client.Spool(ctx, string(text), opts)
		if err != nil {
			return fmt.Errorf("failed to spool job: %w", err)
		}
		_, err = fmt.Fprintln(c.w, reply)
		return err
	}
	job, err := jobfile.Load(c.File)
	if err != nil {
		return err
	}
	jid, err := c.client.SpoolJob(ctx, job, opts)
	if err != nil {
		return fmt.Errorf("failed to spool job: %w", err)
	}
	_, err = fmt.Fprintln(c.w, jid)
	return err
}

type pingCmd struct {
	cmd
}

// Run is called by [kong] when the CLI arguments contain the `ping` command.
func (c *pingCmd) Run() error {
	reply, err := c.client.Ping(context.Background())
	if err != nil {
		return fmt.Errorf("failed to ping engine: %w", err)
	}
	return c.printJSON(reply)
}

type statsCmd struct {
	cmd
}

// Run is called by [kong] when the CLI arguments contain the `stats` command.
func (c *statsCmd) Run() error {
	reply, err := c.client.QueueStats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get queue statistics: %w", err)
	}
	return c.printJSON(reply)
}

type jobsCmd struct {
	cmd
	Filter string `arg:"" optional:"" help:"Saved job filter name."`
}

// Run is called by [kong] when the CLI arguments contain the `jobs` command.
func (c *jobsCmd) Run() error {
	reply, err := c.client.FetchJobsAsJSON(context.Background(), c.Filter)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	return c.printJSON(reply)
}

type bladesCmd struct {
	cmd
	Filter string `arg:"" optional:"" help:"Saved blade filter name."`
}

// Run is called by [kong] when the CLI arguments contain the `blades` command.
func (c *bladesCmd) Run() error {
	reply, err := c.client.FetchBladesAsJSON(context.Background(), c.Filter)
	if err != nil {
		return fmt.Errorf("failed to list blades: %w", err)
	}
	return c.printJSON(reply)
}

type jobCmd struct {
	cmd
	JID int `arg:"" required:"" help:"Job ID."`
}

type pauseCmd struct{ jobCmd }

type unpauseCmd struct{ jobCmd }

type interruptCmd struct{ jobCmd }

type restartCmd struct{ jobCmd }

type deleteCmd struct{ jobCmd }

// Run is called by [kong] when the CLI arguments contain the `pause` command.
func (c *pauseCmd) Run() error {
	return wrapJob("pause", c.JID, c.client.PauseJob(context.Background(), c.JID))
}

// Run is called by [kong] when the CLI arguments contain the `unpause` command.
func (c *unpauseCmd) Run() error {
	return wrapJob("unpause", c.JID, c.client.UnpauseJob(context.Background(), c.JID))
}

// Run is called by [kong] when the CLI arguments contain the `interrupt` command.
func (c *interruptCmd) Run() error {
	return wrapJob("interrupt", c.JID, c.client.InterruptJob(context.Background(), c.JID))
}

// Run is called by [kong] when the CLI arguments contain the `restart` command.
func (c *restartCmd) Run() error {
	return wrapJob("restart", c.JID, c.client.RestartJob(context.Background(), c.JID))
}

// Run is called by [kong] when the CLI arguments contain the `delete` command.
func (c *deleteCmd) Run() error {
	return wrapJob("delete", c.JID, c.client.DeleteJob(context.Background(), c.JID))
}

func wrapJob(op string, jid int, err error) error {
	if err != nil {
		return fmt.Errorf("failed to %s job %d: %w", op, jid, err)
	}
	return nil
}

type taskCmd struct {
	cmd
	JID int `arg:"" required:"" help:"Job ID."`
	TID int `arg:"" required:"" help:"Task ID."`
}

type retryCmd struct{ taskCmd }

type skipCmd struct{ taskCmd }

// Run is called by [kong] when the CLI arguments contain the `retry` command.
func (c *retryCmd) Run() error {
	if err := c.client.RetryTask(context.Background(), c.JID, c.TID); err != nil {
		return fmt.Errorf("failed to retry task %d of job %d: %w", c.TID, c.JID, err)
	}
	return nil
}

// Run is called by [kong] when the CLI arguments contain the `skip` command.
func (c *skipCmd) Run() error {
	if err := c.client.SkipTask(context.Background(), c.JID, c.TID); err != nil {
		return fmt.Errorf("failed to skip task %d of job %d: %w", c.TID, c.JID, err)
	}
	return nil
}

type bladeCmd struct {
	cmd
	Blade string `arg:"" required:"" help:"Blade name."`
	IP    string `arg:"" required:"" help:"Blade IP address."`
}

type nimbyCmd struct {
	bladeCmd
	Allow string `help:"Only accept jobs of this user or host."`
}

type unnimbyCmd struct{ bladeCmd }

type ejectCmd struct{ bladeCmd }

type delistCmd struct{ bladeCmd }

// Run is called by [kong] when the CLI arguments contain the `nimby` command.
func (c *nimbyCmd) Run() error {
	return wrapBlade("nimby", c.Blade, c.client.NimbyBlade(context.Background(), c.Blade, c.IP, c.Allow))
}

// Run is called by [kong] when the CLI arguments contain the `unnimby` command.
func (c *unnimbyCmd) Run() error {
	return wrapBlade("unnimby", c.Blade, c.client.UnnimbyBlade(context.Background(), c.Blade, c.IP))
}

// Run is called by [kong] when the CLI arguments contain the `eject` command.
func (c *ejectCmd) Run() error {
	return wrapBlade("eject", c.Blade, c.client.EjectBlade(context.Background(), c.Blade, c.IP))
}

// Run is called by [kong] when the CLI arguments contain the `delist` command.
func (c *delistCmd) Run() error {
	return wrapBlade("delist", c.Blade, c.client.DelistBlade(context.Background(), c.Blade, c.IP))
}

func wrapBlade(op, blade string, err error) error {
	if err != nil {
		return fmt.Errorf("failed to %s blade %s: %w", op, blade, err)
	}
	return nil
}

type reloadCmd struct {
	cmd
	File string `arg:"" optional:"" help:"Configuration file, all if not given."`
}

// Run is called by [kong] when the CLI arguments contain the `reload` command.
func (c *reloadCmd) Run() error {
	ctx := context.Background()
	reload := map[string]func(context.Context) error{
		"":                   c.client.ReloadAllConfigs,
		engine.LimitsConfig:  c.client.ReloadLimitsConfig,
		engine.CrewsConfig:   c.client.ReloadCrewsConfig,
		engine.BladeConfig:   c.client.ReloadBladeConfig,
		engine.TractorConfig: c.client.ReloadTractorConfig,
	}[c.File]
	if reload == nil {
		return fmt.Errorf("unknown configuration file %q", c.File)
	}
	if err := reload(ctx); err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	return nil
}

type logoutCmd struct {
	cmd
}

// Run is called by [kong] when the CLI arguments contain the `logout` command.
func (c *logoutCmd) Run() error {
	ctx := context.Background()
	if !c.client.CanReuseSession(ctx) {
		return nil
	}
	if err := c.client.Close(ctx); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}
