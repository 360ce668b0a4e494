// Package pipeline orchestrates the phase-major processing run: every item
// finishes a phase before any item enters the next one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"curator/internal/cachefill"
	"curator/internal/catalog"
	"curator/internal/categories"
	"curator/internal/categorize"
	"curator/internal/config"
	"curator/internal/gitsync"
	"curator/internal/kbwriter"
	"curator/internal/logging"
	"curator/internal/mediacache"
	"curator/internal/mediadescribe"
	"curator/internal/mediafetch"
	"curator/internal/notifications"
	"curator/internal/phase"
	"curator/internal/services"
	"curator/internal/services/ollama"
	"curator/internal/stats"
	"curator/internal/twitterfetch"
)

// ErrDegraded reports a run that finished but left items failed or skipped
// the sync. The returned report still describes the whole run.
var ErrDegraded = errors.New("pipeline: run completed with errors")

// Syncer publishes the knowledge base after a run.
type Syncer interface {
	Sync(ctx context.Context, message string) error
}

// Options controls one run.
type Options struct {
	// ImportIDs registers these item IDs before the phase loop.
	ImportIDs []string
	// Revalidate reconciles flags before every phase, not only at startup.
	Revalidate bool
	// Recache demotes every item back to the cache phase so source content is
	// fetched again. Later phases rebuild from the fresh content.
	Recache bool
	// SkipReadme leaves the root README untouched.
	SkipReadme bool
	// SkipSync skips publishing even when a syncer is configured.
	SkipSync bool
}

// Deps lets callers replace external collaborators. Nil fields get defaults
// built from the configuration.
type Deps struct {
	Fetcher     cachefill.SourceFetcher
	Downloader  mediafetch.Downloader
	Interpreter mediadescribe.Interpreter
	Classifier  categorize.Classifier
	Renderer    kbwriter.Renderer
	Syncer      Syncer
	Notifier    notifications.Service
	History     *stats.History
}

// Orchestrator owns one configured pipeline.
type Orchestrator struct {
	cfg      *config.Config
	store    *catalog.Store
	cats     *categories.Manager
	runner   *phase.Runner
	handlers []phase.Handler
	syncer   Syncer
	notifier notifications.Service
	history  *stats.History
	logger   *slog.Logger
}

// New builds an orchestrator from configuration, opening the catalog and the
// category hierarchy and wiring default collaborators for any nil dep.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Orchestrator, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	cats, err := categories.Load(cfg.CategoriesPath())
	if err != nil {
		return nil, err
	}

	var llm *ollama.Client
	needLLM := deps.Interpreter == nil || deps.Classifier == nil
	if needLLM {
		llm = ollama.New(cfg.Ollama.BaseURL,
			ollama.WithLogger(logger),
			ollama.WithTimeout(time.Duration(cfg.Ollama.TimeoutSeconds)*time.Second))
	}
	if deps.Fetcher == nil {
		deps.Fetcher = twitterfetch.New(twitterfetch.WithLogger(logger))
	}
	if deps.Downloader == nil {
		deps.Downloader = mediacache.New(cfg.Paths.MediaCacheDir, mediacache.WithLogger(logger))
	}
	if deps.Interpreter == nil {
		deps.Interpreter = mediadescribe.OllamaInterpreter{Client: llm, Model: cfg.Ollama.VisionModel}
	}
	if deps.Classifier == nil {
		deps.Classifier = categorize.OllamaClassifier{Client: llm, Model: cfg.Ollama.TextModel}
	}
	if deps.Renderer == nil {
		deps.Renderer = kbwriter.NewWriter(cfg.Paths.KnowledgeBaseDir)
	}
	if deps.Syncer == nil && cfg.GitHub.Enabled {
		deps.Syncer = gitsync.New(cfg, logger)
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(cfg)
	}
	if deps.History == nil {
		history, err := stats.OpenHistory(cfg.HistoryDBPath())
		if err != nil {
			return nil, err
		}
		deps.History = history
	}

	handlers := []phase.Handler{
		cachefill.NewHandler(store, deps.Fetcher, logger),
		mediafetch.NewHandler(store, deps.Downloader, logger),
		mediadescribe.NewHandler(store, deps.Interpreter, logger),
		categorize.NewHandler(store, deps.Classifier, cats, logger),
		kbwriter.NewHandler(store, deps.Renderer, logger),
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		cats:     cats,
		runner:   phase.NewRunner(store, logger, cfg.Pipeline.MaxParallelItems),
		handlers: handlers,
		syncer:   deps.Syncer,
		notifier: deps.Notifier,
		history:  deps.History,
		logger:   logger.With(logging.String(logging.FieldComponent, "pipeline")),
	}, nil
}

// Store exposes the opened catalog for read-only commands.
func (o *Orchestrator) Store() *catalog.Store {
	return o.store
}

// Close releases long-lived resources.
func (o *Orchestrator) Close() error {
	if o.history != nil {
		return o.history.Close()
	}
	return nil
}

// Run executes the full pipeline once. The report is returned even when the
// error is non-nil; ErrDegraded marks runs that finished with item failures
// or a failed sync, while any other error means the run aborted.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*stats.Report, error) {
	lock := flock.New(o.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("pipeline: acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("pipeline: another run holds %s", o.cfg.LockPath())
	}
	defer lock.Unlock()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	log := o.logger.With(logging.String(logging.FieldRunID, runID))
	started := time.Now().UTC()
	report := &stats.Report{RunID: runID, StartedAt: started}

	for _, id := range opts.ImportIDs {
		if _, err := o.store.EnsureItem(id); err != nil {
			return report, err
		}
	}
	report.Imported = len(opts.ImportIDs)

	repaired, err := o.store.Reconcile()
	if err != nil {
		return report, err
	}
	report.Repaired = len(repaired)
	if len(repaired) > 0 {
		log.Warn("validator repaired items", logging.Int("count", len(repaired)))
		o.notify(ctx, func(s notifications.Service) error {
			return s.NotifyValidationRepairs(ctx, len(repaired))
		})
	}

	if opts.Recache {
		for _, item := range o.store.All() {
			if !item.CacheComplete {
				continue
			}
			if _, err := o.store.Demote(item.ID, catalog.PhaseCache); err != nil {
				return report, err
			}
		}
		log.Info("recache requested, all items demoted to the cache phase")
	}

	pending := len(o.store.Unprocessed())
	log.Info("starting run", logging.Int("pending", pending))
	o.notify(ctx, func(s notifications.Service) error {
		return s.NotifyRunStarted(ctx, pending)
	})

	for _, handler := range o.handlers {
		if opts.Revalidate {
			if _, err := o.store.Reconcile(); err != nil {
				return o.finish(ctx, report, started, err)
			}
		}
		result, err := o.runner.RunPhase(ctx, handler)
		if result != nil {
			report.Phases = append(report.Phases, stats.PhaseStat{
				Phase:     string(result.Phase),
				Attempted: result.Attempted,
				Succeeded: result.Succeeded,
				Failed:    len(result.Failures),
			})
			for _, failure := range result.Failures {
				report.Failures = append(report.Failures, stats.ItemFailure{
					ItemID: failure.ItemID,
					Phase:  string(result.Phase),
					Error:  failure.Err.Error(),
				})
			}
		}
		if err != nil {
			o.notify(ctx, func(s notifications.Service) error {
				return s.NotifyError(ctx, err, "phase "+string(handler.Phase()))
			})
			return o.finish(ctx, report, started, err)
		}
	}

	if !opts.SkipReadme {
		if err := kbwriter.WriteRootReadme(o.cfg.Paths.KnowledgeBaseDir, o.store.All()); err != nil {
			log.Error("root readme regeneration failed", logging.Error(err))
			report.Degraded = true
		}
	}

	if o.syncer != nil && !opts.SkipSync {
		message := fmt.Sprintf("curator: update knowledge base (%s)", started.Format("2006-01-02 15:04"))
		if err := o.syncer.Sync(ctx, message); err != nil {
			log.Error("knowledge base sync failed", logging.Error(err))
			report.Degraded = true
			report.SyncError = err.Error()
			o.notify(ctx, func(s notifications.Service) error {
				return s.NotifyError(ctx, err, "sync")
			})
		}
	}

	return o.finish(ctx, report, started, nil)
}

// finish seals the report, persists it, records history and maps the outcome
// to an error value.
func (o *Orchestrator) finish(ctx context.Context, report *stats.Report, started time.Time, runErr error) (*stats.Report, error) {
	report.FinishedAt = time.Now().UTC()
	report.DurationSeconds = report.FinishedAt.Sub(started).Seconds()
	report.Catalog = stats.BuildSnapshot(o.store.All())

	if err := stats.SaveReport(o.cfg.StatsReportPath(), report); err != nil {
		o.logger.Error("failed to save stats report", logging.Error(err))
		report.Degraded = true
	}
	if o.history != nil {
		if err := o.history.RecordReport(ctx, report); err != nil {
			o.logger.Error("failed to record run history", logging.Error(err))
			report.Degraded = true
		}
	}
	if runErr != nil {
		return report, runErr
	}

	duration := report.FinishedAt.Sub(started)
	o.notify(ctx, func(s notifications.Service) error {
		return s.NotifyRunCompleted(ctx, report.SucceededItems(), report.FailedItems(), duration)
	})
	o.logger.Info("run finished",
		logging.String(logging.FieldRunID, report.RunID),
		logging.Int("succeeded", report.SucceededItems()),
		logging.Int("failed", report.FailedItems()),
		logging.Bool("degraded", report.Degraded))

	if len(report.Failures) > 0 || report.Degraded {
		return report, ErrDegraded
	}
	return report, nil
}

// notify delivers a notification, logging delivery failures instead of
// surfacing them.
func (o *Orchestrator) notify(ctx context.Context, send func(notifications.Service) error) {
	if o.notifier == nil {
		return
	}
	if err := send(o.notifier); err != nil {
		o.logger.Warn("notification delivery failed", logging.Error(err))
	}
}
