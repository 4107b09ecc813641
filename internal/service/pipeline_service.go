package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	zlog "github.com/rs/zerolog/log"

	"csvhouse/internal/config"
	"csvhouse/internal/dbclient"
	"csvhouse/internal/domain"
	"csvhouse/internal/etl"
	_ "csvhouse/internal/etl/sources"
	"csvhouse/internal/report"
	"csvhouse/internal/watch"
)

// ─────────────────────────────────────────────────────────────
// Pipeline Service — runs the workflow, records history, triggers
// ─────────────────────────────────────────────────────────────

// Workflow commands.
const (
	CommandRun      = "run"
	CommandLoad     = "load"
	CommandGenerate = "generate"
	CommandReport   = "report"
)

// ErrAlreadyRunning is returned when a run targets a table another run
// is still writing.
var ErrAlreadyRunning = errors.New("a run is already in progress")

// watchDebounce coalesces the burst of events a single file save produces.
const watchDebounce = 500 * time.Millisecond

// PipelineService wraps the engine with a running guard, the run
// history and the schedule/file-watch triggers.
type PipelineService struct {
	cfg     *config.Config
	runs    domain.LoadRunStore
	emitter EventEmitter
	engine  *etl.Engine
	running runGuard

	// watcher / cron lifecycle
	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *watch.Watcher
	cronSched   *cron.Cron
}

// NewPipelineService creates a PipelineService. runs may be nil to skip
// the run history.
func NewPipelineService(cfg *config.Config, runs domain.LoadRunStore, emitter EventEmitter) *PipelineService {
	if emitter == nil {
		emitter = LogEmitter{}
	}
	return &PipelineService{
		cfg:     cfg,
		runs:    runs,
		emitter: emitter,
		engine:  &etl.Engine{Reporter: &report.Reporter{}},
	}
}

// Config returns the configuration the service runs with.
func (s *PipelineService) Config() *config.Config {
	return s.cfg
}

// ── Jobs ──────────────────────────────────────────────────

func stagesFor(command string) (etl.Stages, error) {
	switch command {
	case CommandRun, "":
		return etl.AllStages, nil
	case CommandLoad:
		return etl.Stages{Load: true}, nil
	case CommandGenerate:
		return etl.Stages{Generate: true}, nil
	case CommandReport:
		return etl.Stages{Report: true}, nil
	default:
		return etl.Stages{}, fmt.Errorf("unknown command %q", command)
	}
}

// Job builds the engine job for a command from the configuration.
func (s *PipelineService) Job(command string) (*etl.SyncJob, error) {
	stages, err := stagesFor(command)
	if err != nil {
		return nil, err
	}
	if command == "" {
		command = CommandRun
	}
	cfg := s.cfg

	job := &etl.SyncJob{
		Command:    command,
		Store:      cfg.Store.StoreConnection,
		Table:      cfg.Store.Table,
		SourceType: cfg.Source.Type,
		SourceCfg: etl.SourceConfig{
			"filePath":  cfg.Source.Path,
			"delimiter": cfg.Source.Delimiter,
			"dataPath":  cfg.Source.DataPath,
		},
		Synthetic: etl.SourceConfig{
			"rows": cfg.Synthetic.Rows,
			"seed": cfg.Synthetic.Seed,
		},
		Partition: etl.PartitionOptions{
			Count:    cfg.Partition.Count,
			Workers:  cfg.Partition.Workers,
			Policy:   etl.FailurePolicy(cfg.Partition.FailurePolicy),
			ConnMode: etl.ConnMode(cfg.Partition.Connection),
		},
		Stages: stages,
	}
	for _, r := range cfg.Reports {
		job.Reports = append(job.Reports, reportSpec(cfg.Store.Table, r))
	}
	return job, nil
}

func reportSpec(table string, r config.ReportConfig) report.Spec {
	return report.Spec{
		Table:  table,
		Column: r.Column,
		Bins:   r.Bins,
		Title:  r.Title,
		XLabel: r.XLabel,
		YLabel: r.YLabel,
		Color:  r.Color,
		Output: r.Output,
		Show:   r.Show,
	}
}

// ── Run ────────────────────────────────────────────────────

// Run executes one command of the workflow synchronously.
func (s *PipelineService) Run(ctx context.Context, command string) (*etl.SyncResult, error) {
	job, err := s.Job(command)
	if err != nil {
		return nil, err
	}
	return s.RunJob(ctx, job)
}

// LoadFile bulk loads a file other than the configured source.
func (s *PipelineService) LoadFile(ctx context.Context, path string) (*etl.SyncResult, error) {
	job, err := s.Job(CommandLoad)
	if err != nil {
		return nil, err
	}
	job.SourceCfg["filePath"] = path
	return s.RunJob(ctx, job)
}

// RunJob executes a prepared job, guarded against overlapping runs on
// the same table and recorded in the run history.
func (s *PipelineService) RunJob(ctx context.Context, job *etl.SyncJob) (*etl.SyncResult, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if ok, holder := s.running.TryLock(job.Table, job.ID); !ok {
		return nil, fmt.Errorf("table %s: %w (run %s)", job.Table, ErrAlreadyRunning, holder)
	}
	defer s.running.Unlock(job.Table)

	run := &domain.LoadRun{ID: job.ID, Command: job.Command, StartedAt: time.Now(), Status: domain.RunRunning}
	if s.runs != nil {
		if err := s.runs.CreateRun(run); err != nil {
			zlog.Warn().Err(err).Str("run", run.ID).Msg("could not record run start")
		}
	}
	s.emitter.Emit(ctx, EventRunStarted, map[string]string{"runId": job.ID, "command": job.Command})

	result, runErr := s.engine.RunSync(ctx, job)

	run.FinishedAt = time.Now()
	run.Status = result.Status
	run.RowsRead = result.RowsRead
	run.RowsWritten = result.RowsWritten
	run.PartitionRows = result.PartitionRows
	run.Error = result.Error
	if s.runs != nil {
		if err := s.runs.FinishRun(run); err != nil {
			zlog.Warn().Err(err).Str("run", run.ID).Msg("could not record run result")
		}
	}
	s.emitter.Emit(ctx, EventRunFinished, result)

	return result, runErr
}

// ColumnHistogram buckets one column of the configured table without
// rendering a chart.
func (s *PipelineService) ColumnHistogram(ctx context.Context, column string, bins int) (*report.Histogram, error) {
	conn, err := dbclient.NewConnector(ctx, &s.cfg.Store.StoreConnection)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	res, err := s.engine.Reporter.Report(ctx, conn, report.Spec{
		Table:  s.cfg.Store.Table,
		Column: column,
		Bins:   bins,
	})
	if err != nil {
		return nil, err
	}
	return res.Histogram, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *PipelineService) ListRuns(limit int) ([]domain.LoadRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.ListRuns(limit)
}

// ListSources returns the available source descriptors.
func (s *PipelineService) ListSources() []etl.SourceSpec {
	return etl.ListSources()
}

// PreviewSource reads the first rows of any registered source.
func (s *PipelineService) PreviewSource(ctx context.Context, sourceType string, cfg etl.SourceConfig, rows int) (domain.Table, error) {
	if rows <= 0 {
		rows = etl.PreviewRows
	}
	previewCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.engine.Preview(previewCtx, sourceType, cfg, rows)
}

// ── Triggers (cron + file_watch) ──────────────────────────

// StartTriggers installs the configured schedule and file watch. Each
// trigger re-runs the whole workflow; runs that would overlap are skipped.
func (s *PipelineService) StartTriggers(ctx context.Context) error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	trig := s.cfg.Trigger
	if trig.Schedule != "" {
		c := cron.New()
		_, err := c.AddFunc(trig.Schedule, func() {
			zlog.Info().Str("schedule", trig.Schedule).Msg("cron: running workflow")
			s.triggeredRun(ctx, "cron")
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", trig.Schedule, err)
		}
		c.Start()
		s.cronSched = c
		zlog.Info().Str("schedule", trig.Schedule).Msg("cron: scheduled")
	}

	if trig.WatchFile {
		if err := s.startWatcherLocked(ctx, s.cfg.Source.Path); err != nil {
			s.stopLocked()
			return err
		}
	}
	return nil
}

func (s *PipelineService) triggeredRun(ctx context.Context, trigger string) {
	if _, err := s.Run(ctx, CommandRun); err != nil {
		zlog.Error().Err(err).Str("trigger", trigger).Msg("triggered run failed")
	}
}

func (s *PipelineService) startWatcherLocked(ctx context.Context, path string) error {
	watchCtx, cancel := context.WithCancel(ctx)

	w, err := watch.New(watchDebounce, func(changed string) {
		if watchCtx.Err() != nil {
			return
		}
		zlog.Info().Str("path", changed).Msg("watcher: file changed, running workflow")
		s.triggeredRun(watchCtx, "file_watch")
	})
	if err != nil {
		cancel()
		return err
	}
	if err := w.WatchFile(path); err != nil {
		cancel()
		w.Close()
		return err
	}
	s.watcher = w
	s.watchCancel = cancel

	zlog.Info().Str("path", path).Msg("watcher: watching source file")
	return nil
}

// WaitRunning blocks until all running workflows finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *PipelineService) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}

// Stop tears down all watchers and schedulers.
func (s *PipelineService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *PipelineService) stopLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
