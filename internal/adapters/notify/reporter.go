package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// LogReporter writes each failed reconciliation as a zap warning
type LogReporter struct {
	logger *zap.Logger
}

// Ensure LogReporter implements FailureReporter
var _ ports.FailureReporter = (*LogReporter)(nil)

// NewLogReporter creates a reporter writing to logger
func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) ReportFailure(_ context.Context, f domain.ReconcileFailure) {
	r.logger.Warn(f.Message(),
		zap.Int64("seq", f.Seq),
		zap.String("content_id", f.ContentID.String()),
		zap.String("from", f.Task.From),
		zap.String("to", f.Task.To),
		zap.Stringer("kind", f.Kind),
		zap.Bool("compensated", f.Compensated),
	)
}

// Recorder keeps the most recent failures in memory for display
type Recorder struct {
	mu       sync.Mutex
	limit    int
	failures []domain.ReconcileFailure
}

// Ensure Recorder implements FailureReporter
var _ ports.FailureReporter = (*Recorder)(nil)

// NewRecorder keeps up to limit failures; zero keeps all
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) ReportFailure(_ context.Context, f domain.ReconcileFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
	if r.limit > 0 && len(r.failures) > r.limit {
		r.failures = r.failures[len(r.failures)-r.limit:]
	}
}

// Failures returns the recorded failures, oldest first
func (r *Recorder) Failures() []domain.ReconcileFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ReconcileFailure(nil), r.failures...)
}

// Reporters fans a failure out to several reporters
type Reporters []ports.FailureReporter

func (rs Reporters) ReportFailure(ctx context.Context, f domain.ReconcileFailure) {
	for _, r := range rs {
		r.ReportFailure(ctx, f)
	}
}
