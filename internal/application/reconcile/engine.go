// Package reconcile turns pending change log entries into filesystem moves
// and records the outcome back into the change log.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"marginalia/internal/application"
	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// Metrics observes reconciliation. A nil Metrics disables collection.
type Metrics interface {
	RecordOutcome(outcome string)
	ObservePass(examined int, d time.Duration)
	ObserveMove(d time.Duration, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordOutcome(string) {}
func (noopMetrics) ObservePass(int, time.Duration) {}
func (noopMetrics) ObserveMove(time.Duration, error) {}

// Config tunes the engine
type Config struct {
	// Interval between passes in Run
	Interval time.Duration
	// Window limits regular passes to changes newer than this; zero disables it
	Window time.Duration
	// MaxItemsPerPass caps the entries examined in one pass; zero is unlimited
	MaxItemsPerPass int
	// Workers bounds how many identifiers are reconciled concurrently
	Workers int
	// PruneAfter deletes settled changes older than this from Run; zero disables pruning
	PruneAfter time.Duration
	Policy     Policy
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		Interval:        2 * time.Second,
		Window:          5 * time.Second,
		MaxItemsPerPass: 500,
		Workers:         4,
		Policy:          DefaultPolicy(),
	}
}

// Deps are the collaborators of an Engine. Evicter, Reporter and Metrics
// are optional.
type Deps struct {
	Store     ports.MetadataStore
	Log       ports.ChangeLog
	Files     ports.Filesystem
	Peeker    ports.IdentityPeeker
	Publisher ports.RenamePublisher
	Evicter   ports.ListingEvicter
	Reporter  ports.FailureReporter
	Metrics   Metrics
	Logger    *zap.Logger
}

// Engine reconciles pending changes. Changes to one identifier are applied
// sequentially in log order; different identifiers run concurrently.
type Engine struct {
	store     ports.MetadataStore
	log       ports.ChangeLog
	files     ports.Filesystem
	peeker    ports.IdentityPeeker
	publisher ports.RenamePublisher
	evicter   ports.ListingEvicter
	reporter  ports.FailureReporter
	metrics   Metrics
	logger    *zap.Logger

	cfg        Config
	now        func() time.Time
	newBackOff func() backoff.BackOff
	kick       chan struct{}
	lastPrune  time.Time

	// passMu serializes passes started by Run and by callers of RunPass or CatchUp
	passMu sync.Mutex
}

// NewEngine creates an engine. Zero config fields take their defaults.
func NewEngine(deps Deps, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Policy == nil {
		cfg.Policy = def.Policy
	}
	e := &Engine{
		store:     deps.Store,
		log:       deps.Log,
		files:     deps.Files,
		peeker:    deps.Peeker,
		publisher: deps.Publisher,
		evicter:   deps.Evicter,
		reporter:  deps.Reporter,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		cfg:       cfg,
		now:       time.Now,
		kick:      make(chan struct{}, 1),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
	}
	if e.metrics == nil {
		e.metrics = noopMetrics{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Kick requests a pass as soon as possible from a running Run loop
func (e *Engine) Kick() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Run performs a catch-up pass, then a windowed pass on every interval or
// kick until ctx is cancelled
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("reconciliation engine started",
		zap.Duration("interval", e.cfg.Interval),
		zap.Duration("window", e.cfg.Window),
		zap.Int("workers", e.cfg.Workers))

	if _, err := e.CatchUp(ctx); err != nil && ctx.Err() == nil {
		e.logger.Error("catch-up pass failed", zap.Error(err))
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("reconciliation engine stopped")
			return nil
		case <-ticker.C:
		case <-e.kick:
		}

		if _, err := e.RunPass(ctx); err != nil && ctx.Err() == nil {
			e.logger.Error("reconciliation pass failed", zap.Error(err))
		}
		e.maybePrune(ctx)
	}
}

// RunPass reconciles pending changes inside the recency window
func (e *Engine) RunPass(ctx context.Context) (domain.PassStats, error) {
	var since time.Time
	if e.cfg.Window > 0 {
		since = e.now().Add(-e.cfg.Window)
	}
	return e.pass(ctx, since)
}

// CatchUp reconciles every pending change regardless of age
func (e *Engine) CatchUp(ctx context.Context) (domain.PassStats, error) {
	return e.pass(ctx, time.Time{})
}

// pass handles folders before items so item tasks see rebased locations
func (e *Engine) pass(ctx context.Context, since time.Time) (domain.PassStats, error) {
	e.passMu.Lock()
	defer e.passMu.Unlock()

	start := e.now()
	limit := e.cfg.MaxItemsPerPass

	folders, err := e.log.PendingFolders(ctx, domain.LogFilter{Since: since, Limit: limit})
	if err != nil {
		return domain.PassStats{}, fmt.Errorf("load pending folders: %w", err)
	}
	stats := e.reconcileBatch(ctx, folders)

	if limit == 0 || len(folders) < limit {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(folders)
		}
		items, err := e.log.PendingItems(ctx, domain.KindAny, domain.LogFilter{Since: since, Limit: remaining})
		if err != nil {
			return stats, fmt.Errorf("load pending items: %w", err)
		}
		stats.Add(e.reconcileBatch(ctx, items))
	}

	stats.Duration = e.now().Sub(start)
	e.metrics.ObservePass(stats.Examined, stats.Duration)
	if stats.Examined > 0 {
		e.logger.Info("reconciliation pass",
			zap.Int("examined", stats.Examined),
			zap.Int("synced", stats.Synced),
			zap.Int("failed", stats.Failed),
			zap.Int("compensated", stats.Compensated),
			zap.Duration("duration", stats.Duration))
	}
	return stats, nil
}

// reconcileBatch groups entries by identifier and runs the groups on the
// worker pool. Entries arrive in seq order, so each group is oldest first.
func (e *Engine) reconcileBatch(ctx context.Context, entries []domain.ChangeLogEntry) domain.PassStats {
	var (
		order  []domain.ContentID
		groups = make(map[domain.ContentID][]int64)
	)
	for _, c := range entries {
		if _, ok := groups[c.ContentID]; !ok {
			order = append(order, c.ContentID)
		}
		groups[c.ContentID] = append(groups[c.ContentID], c.Seq)
	}

	var (
		mu    sync.Mutex
		stats domain.PassStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for _, id := range order {
		seqs := groups[id]
		g.Go(func() error {
			var local domain.PassStats
			for _, seq := range seqs {
				if gctx.Err() != nil {
					break
				}
				local.Add(e.reconcileOne(gctx, seq))
			}
			mu.Lock()
			stats.Add(local)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return stats
}

// reconcileOne isolates one entry: errors and panics become stats, never
// propagate to other entries
func (e *Engine) reconcileOne(ctx context.Context, seq int64) (stats domain.PassStats) {
	stats.Examined = 1
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic reconciling change", zap.Int64("seq", seq), zap.Any("panic", r))
			stats = domain.PassStats{Examined: 1, Skipped: 1}
			e.metrics.RecordOutcome("error")
		}
	}()

	outcome, failure, err := e.reconcile(ctx, seq)
	if err != nil {
		e.logger.Error("could not reconcile change", zap.Int64("seq", seq), zap.Error(err))
		stats.Skipped = 1
		e.metrics.RecordOutcome("error")
		return stats
	}

	switch outcome {
	case domain.StatusSynced:
		stats.Synced = 1
	case domain.StatusFailed:
		stats.Failed = 1
		if failure.Compensated {
			stats.Compensated = 1
		}
		stats.Failures = []domain.ReconcileFailure{*failure}
	default:
		stats.Skipped = 1
	}
	e.metrics.RecordOutcome(outcomeLabel(outcome, failure))
	return stats
}

func outcomeLabel(s domain.SyncStatus, f *domain.ReconcileFailure) string {
	switch {
	case s == domain.StatusSynced:
		return "synced"
	case f != nil && f.Compensated:
		return "compensated"
	case s == domain.StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// reconcile drives one change through its state machine. An empty outcome
// means the change was no longer pending. err is reserved for database
// failures that left the change pending for a later pass.
func (e *Engine) reconcile(ctx context.Context, seq int64) (domain.SyncStatus, *domain.ReconcileFailure, error) {
	change, err := e.log.Entry(ctx, seq)
	if errors.Is(err, application.ErrNotFound) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if change.Status != domain.StatusPending {
		return "", nil, nil
	}

	entry, err := e.store.Get(ctx, change.ContentID)
	if errors.Is(err, application.ErrNotFound) {
		return e.fail(ctx, change, nil, domain.RenameTask{Seq: seq, ContentID: change.ContentID},
			domain.FailureEntryMissing, "indexed entry no longer exists", nil)
	}
	if err != nil {
		return "", nil, err
	}

	other, err := e.log.ComponentAsOf(ctx, change.ContentID, change.Column.Other(), change.Seq)
	if err != nil {
		return "", nil, err
	}
	task, err := domain.DeriveRenameTask(*change, other)
	if err != nil {
		return "", nil, err
	}

	if task.NoOp() {
		return e.succeed(ctx, change, entry, task, false)
	}
	if change.Origin == domain.OriginCompensation {
		return e.settleCompensation(ctx, change, entry, task)
	}

	dstExists, err := e.files.Exists(task.To)
	if err != nil {
		return e.fail(ctx, change, entry, task, domain.FailureMoveFailed, "cannot inspect destination", err)
	}
	if dstExists {
		if e.alreadyInPlace(change, task) {
			return e.succeed(ctx, change, entry, task, true)
		}
		return e.fail(ctx, change, entry, task, domain.FailureDestinationExists, "destination already exists", nil)
	}

	srcExists, err := e.files.Exists(task.From)
	if err != nil {
		return e.fail(ctx, change, entry, task, domain.FailureMoveFailed, "cannot inspect source", err)
	}
	if !srcExists {
		return e.fail(ctx, change, entry, task, domain.FailureSourceMissing, "source no longer exists", nil)
	}
	foreign, err := e.foreignSource(ctx, change, task)
	if err != nil {
		return "", nil, err
	}
	if foreign {
		return e.fail(ctx, change, entry, task, domain.FailureSourceMismatch, "source path holds another file", nil)
	}

	writable, err := e.files.DirWritable(filepath.Dir(task.To))
	if err != nil || !writable {
		return e.fail(ctx, change, entry, task, domain.FailureDestinationDirMissing,
			"destination directory is missing or not writable", err)
	}

	start := e.now()
	err = e.publisher.Publish(ctx, task)
	e.metrics.ObserveMove(e.now().Sub(start), err)
	if err != nil {
		return e.fail(ctx, change, entry, task, domain.FailureMoveFailed, "move failed", err)
	}
	return e.succeed(ctx, change, entry, task, true)
}

// alreadyInPlace reports whether the move already happened: the file at
// the destination carries this identifier
func (e *Engine) alreadyInPlace(change *domain.ChangeLogEntry, task domain.RenameTask) bool {
	if e.peeker == nil {
		return false
	}
	id, ok := e.peeker.Peek(task.To)
	return ok && id == change.ContentID
}

// foreignSource reports whether the file at the source path is known to
// belong to another identifier. Without a readable identity the index
// decides: a path held by another present entry is not ours to move.
func (e *Engine) foreignSource(ctx context.Context, change *domain.ChangeLogEntry, task domain.RenameTask) (bool, error) {
	if e.peeker != nil {
		if id, ok := e.peeker.Peek(task.From); ok {
			return id != change.ContentID, nil
		}
	}
	holder, err := e.store.FindByPath(ctx, filepath.Dir(task.From), filepath.Base(task.From))
	if errors.Is(err, application.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return holder.ID != change.ContentID && holder.MissingSince.IsZero(), nil
}

// settleCompensation confirms a compensating change. It restores the path
// the file never left, so nothing is moved: the file must already be there
// carrying this identifier.
func (e *Engine) settleCompensation(ctx context.Context, change *domain.ChangeLogEntry, entry *domain.IndexedEntry, task domain.RenameTask) (domain.SyncStatus, *domain.ReconcileFailure, error) {
	exists, err := e.files.Exists(task.To)
	if err != nil {
		return e.fail(ctx, change, entry, task, domain.FailureMoveFailed, "cannot inspect restored path", err)
	}
	if !exists {
		return e.fail(ctx, change, entry, task, domain.FailureSourceMissing, "file is no longer at its restored path", nil)
	}
	if !e.alreadyInPlace(change, task) {
		return e.fail(ctx, change, entry, task, domain.FailureSourceMismatch, "restored path holds another file", nil)
	}
	return e.succeed(ctx, change, entry, task, false)
}

func (e *Engine) succeed(ctx context.Context, change *domain.ChangeLogEntry, entry *domain.IndexedEntry, task domain.RenameTask, moved bool) (domain.SyncStatus, *domain.ReconcileFailure, error) {
	if err := e.markSynced(ctx, change.Seq); err != nil {
		if errors.Is(err, application.ErrNotPending) {
			return "", nil, nil
		}
		// the file moved but the status did not stick; the next pass
		// finds it already in place
		return "", nil, fmt.Errorf("mark change #%d synced: %w", change.Seq, err)
	}
	if !moved {
		return domain.StatusSynced, nil, nil
	}

	if e.evicter != nil {
		e.evicter.Evict(filepath.Dir(task.From))
		e.evicter.Evict(filepath.Dir(task.To))
	}
	if entry.IsFolder() {
		if e.evicter != nil {
			e.evicter.EvictTree(task.From)
			e.evicter.EvictTree(task.To)
		}
		n, err := e.store.RebaseLocation(ctx, task.From, task.To)
		if err != nil {
			e.logger.Error("could not rebase folder contents",
				zap.String("from", task.From), zap.String("to", task.To), zap.Error(err))
		} else if n > 0 {
			e.logger.Debug("rebased folder contents", zap.String("to", task.To), zap.Int("entries", n))
		}
	}
	return domain.StatusSynced, nil, nil
}

func (e *Engine) markSynced(ctx context.Context, seq int64) error {
	op := func() error {
		err := e.log.MarkSynced(ctx, seq)
		if errors.Is(err, application.ErrNotPending) || errors.Is(err, application.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, d time.Duration) {
		e.logger.Warn("retrying status update", zap.Int64("seq", seq), zap.Duration("after", d), zap.Error(err))
	}
	err := backoff.RetryNotify(op, backoff.WithContext(e.newBackOff(), ctx), notify)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// fail marks the change failed, compensates when allowed and reports it
func (e *Engine) fail(ctx context.Context, change *domain.ChangeLogEntry, entry *domain.IndexedEntry, task domain.RenameTask, kind domain.FailureKind, reason string, cause error) (domain.SyncStatus, *domain.ReconcileFailure, error) {
	rerr := &application.ReconcileError{Kind: kind, Task: task, Reason: reason, Err: cause}
	detail := rerr.Error()

	if err := e.log.MarkFailed(ctx, change.Seq, detail); err != nil {
		if errors.Is(err, application.ErrNotPending) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("mark change #%d failed: %w", change.Seq, err)
	}

	failure := &domain.ReconcileFailure{
		Seq:       change.Seq,
		ContentID: change.ContentID,
		Task:      task,
		Kind:      kind,
		Reason:    reason,
	}
	if cause != nil {
		failure.Reason = fmt.Sprintf("%s: %v", reason, cause)
	}

	if e.shouldCompensate(change, entry, kind) {
		compensated, err := e.compensate(ctx, change)
		if err != nil {
			e.logger.Warn("could not revert failed change", zap.Int64("seq", change.Seq), zap.Error(err))
		}
		failure.Compensated = compensated
	}

	if e.reporter != nil {
		e.reporter.ReportFailure(ctx, *failure)
	}
	e.logger.Warn("change failed", zap.Int64("seq", change.Seq), zap.Error(rerr), zap.Bool("compensated", failure.Compensated))
	return domain.StatusFailed, failure, nil
}

// shouldCompensate never compensates a compensation, so failures cannot loop
func (e *Engine) shouldCompensate(change *domain.ChangeLogEntry, entry *domain.IndexedEntry, kind domain.FailureKind) bool {
	return entry != nil && change.Origin != domain.OriginCompensation && e.cfg.Policy.Allows(kind)
}

// compensate restores the value the failed change replaced. Later pending
// changes of the same column start from the path the file never reached,
// so they fail with it. A later settled change means the file was seen
// elsewhere since, and nothing is restored.
func (e *Engine) compensate(ctx context.Context, change *domain.ChangeLogEntry) (bool, error) {
	history, err := e.log.History(ctx, change.ContentID)
	if err != nil {
		return false, err
	}
	expected := change.NewValue
	var superseded []int64
	for _, c := range history {
		if c.Seq <= change.Seq || c.Column != change.Column {
			continue
		}
		if c.Status != domain.StatusPending {
			return false, nil
		}
		superseded = append(superseded, c.Seq)
		expected = c.NewValue
	}

	entry, err := e.store.Get(ctx, change.ContentID)
	if err != nil {
		return false, err
	}
	if entry.Component(change.Column) != expected {
		return false, nil
	}

	for _, seq := range superseded {
		err := e.log.MarkFailed(ctx, seq, fmt.Sprintf("superseded: change #%d failed", change.Seq))
		if err != nil && !errors.Is(err, application.ErrNotPending) {
			return false, fmt.Errorf("fail superseded change #%d: %w", seq, err)
		}
		e.logger.Info("superseded change failed", zap.Int64("seq", seq), zap.Int64("failed", change.Seq))
	}

	switch change.Column {
	case domain.ColumnName:
		_, err = e.store.UpdateName(ctx, change.ContentID, change.OldValue, domain.OriginCompensation)
	case domain.ColumnLocation:
		_, err = e.store.UpdateLocation(ctx, []domain.ContentID{change.ContentID}, change.OldValue, domain.OriginCompensation)
	default:
		err = fmt.Errorf("column %q cannot be compensated", change.Column)
	}
	return err == nil, err
}

func (e *Engine) maybePrune(ctx context.Context) {
	if e.cfg.PruneAfter <= 0 {
		return
	}
	now := e.now()
	if now.Sub(e.lastPrune) < time.Hour {
		return
	}
	e.lastPrune = now
	n, err := e.log.Prune(ctx, now.Add(-e.cfg.PruneAfter))
	if err != nil {
		e.logger.Warn("could not prune change log", zap.Error(err))
		return
	}
	if n > 0 {
		e.logger.Info("pruned change log", zap.Int64("entries", n))
	}
}
