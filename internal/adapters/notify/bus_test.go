package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

var task = domain.RenameTask{Seq: 1, ContentID: "7b0e4c1e-4a55-4b9c-9f6f-2b0d3c3f1a10", From: "/a/x", To: "/b/x"}

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(ports.RenameHandlerFunc(func(_ context.Context, tk domain.RenameTask) error {
		got = append(got, "first:"+tk.To)
		return nil
	}))
	bus.Subscribe(ports.RenameHandlerFunc(func(_ context.Context, tk domain.RenameTask) error {
		got = append(got, "second:"+tk.To)
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), task))
	assert.Equal(t, []string{"first:/b/x", "second:/b/x"}, got)
}

func TestBus_CombinesErrors(t *testing.T) {
	bus := NewBus()
	errA := errors.New("a failed")
	bus.Subscribe(ports.RenameHandlerFunc(func(context.Context, domain.RenameTask) error { return errA }))
	bus.Subscribe(ports.RenameHandlerFunc(func(context.Context, domain.RenameTask) error { panic("boom") }))

	err := bus.Publish(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestBus_NoSubscribers(t *testing.T) {
	assert.Error(t, NewBus().Publish(context.Background(), task))
}

func TestBus_Cancelled(t *testing.T) {
	bus := NewBus()
	called := false
	bus.Subscribe(ports.RenameHandlerFunc(func(context.Context, domain.RenameTask) error {
		called = true
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, bus.Publish(ctx, task), context.Canceled)
	assert.False(t, called)
}

func TestReporters(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := NewRecorder(1)
	reporters := Reporters{NewLogReporter(zap.New(core)), rec}

	f := domain.ReconcileFailure{Seq: 1, Task: task, Kind: domain.FailureDestinationExists, Reason: "taken", Compensated: true}
	reporters.ReportFailure(context.Background(), f)
	reporters.ReportFailure(context.Background(), domain.ReconcileFailure{Seq: 2, Task: task})

	require.Equal(t, 2, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "change reverted")

	failures := rec.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, int64(2), failures[0].Seq)
}
