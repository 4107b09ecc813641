package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	zlog "github.com/rs/zerolog/log"

	"csvhouse/internal/config"
	"csvhouse/internal/secret"
	"csvhouse/internal/service"
	"csvhouse/internal/storage"
)

// Commands handled here rather than by the pipeline service.
const (
	CommandWatch = "watch"
	CommandRuns  = "runs"
	CommandMCP   = "mcp"
)

// shutdownGrace bounds how long watch waits for a running workflow after
// a signal.
const shutdownGrace = 30 * time.Second

// App wires the configuration, the run history and the pipeline service
// for one invocation of the CLI.
type App struct {
	cfg *config.Config
	db  *storage.DB
	svc *service.PipelineService
	out io.Writer
}

// Options configures New. Zero values pick the defaults.
type Options struct {
	ConfigPath string
	Secrets    secret.SecretStore   // nil uses the macOS keychain
	Emitter    service.EventEmitter // nil logs events
	Out        io.Writer            // command output, os.Stdout when nil
}

// New loads the configuration and opens the state database.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	secrets := opts.Secrets
	if secrets == nil {
		secrets = secret.NewKeychainStore()
	}
	if err := resolvePassword(cfg, secrets); err != nil {
		return nil, err
	}

	db, err := storage.New(cfg.StateDB)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return &App{
		cfg: cfg,
		db:  db,
		svc: service.NewPipelineService(cfg, storage.NewRunStore(db), opts.Emitter),
		out: out,
	}, nil
}

// resolvePassword fills the store password from the keychain when the
// file and environment left it empty.
func resolvePassword(cfg *config.Config, secrets secret.SecretStore) error {
	account := cfg.Store.PasswordKeychain
	if cfg.Store.Password != "" || account == "" {
		return nil
	}
	pw, err := secrets.Get(account)
	if err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	if len(pw) == 0 {
		return fmt.Errorf("store password: keychain account %q not found", account)
	}
	cfg.Store.Password = string(pw)
	return nil
}

// Close stops triggers and releases the state database.
func (a *App) Close() error {
	a.svc.Stop()
	return a.db.Close()
}

// Service exposes the pipeline service.
func (a *App) Service() *service.PipelineService {
	return a.svc
}

// Execute runs one CLI command. An empty command means run.
func (a *App) Execute(ctx context.Context, command string, args []string) error {
	switch command {
	case "", service.CommandRun, service.CommandGenerate, service.CommandReport:
		if command == "" {
			command = service.CommandRun
		}
		return a.runWorkflow(ctx, command)
	case service.CommandLoad:
		if len(args) > 0 {
			return a.loadFile(ctx, args[0])
		}
		return a.runWorkflow(ctx, command)
	case CommandWatch:
		return a.Watch(ctx)
	case CommandRuns:
		limit := 20
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("runs: invalid limit %q", args[0])
			}
			limit = n
		}
		return a.PrintRuns(limit)
	case CommandMCP:
		return a.ServeMCP()
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *App) runWorkflow(ctx context.Context, command string) error {
	res, err := a.svc.Run(ctx, command)
	if res != nil {
		fmt.Fprintln(a.out, res.String())
	}
	return err
}

func (a *App) loadFile(ctx context.Context, path string) error {
	res, err := a.svc.LoadFile(ctx, path)
	if res != nil {
		fmt.Fprintln(a.out, res.String())
	}
	return err
}

// Watch starts the configured triggers and blocks until ctx is cancelled,
// then waits for the running workflow to finish.
func (a *App) Watch(ctx context.Context) error {
	trig := a.cfg.Trigger
	if trig.Schedule == "" && !trig.WatchFile {
		return fmt.Errorf("watch: nothing to do, set trigger.schedule or trigger.watch_file")
	}
	if err := a.svc.StartTriggers(ctx); err != nil {
		return err
	}
	zlog.Info().Str("schedule", trig.Schedule).Bool("watch_file", trig.WatchFile).Msg("watching, interrupt to stop")

	<-ctx.Done()
	a.svc.Stop()

	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	a.svc.WaitRunning(waitCtx)
	zlog.Info().Msg("watch stopped")
	return nil
}

// PrintRuns writes the most recent runs as a table.
func (a *App) PrintRuns(limit int) error {
	runs, err := a.svc.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.out, "no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMMAND\tSTARTED\tSTATUS\tREAD\tWRITTEN\tPARTITIONED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.Command, r.StartedAt.Format(time.DateTime), r.Status,
			r.RowsRead, r.RowsWritten, r.PartitionRows, r.Error)
	}
	return tw.Flush()
}
