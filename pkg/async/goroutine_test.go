package async

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rentdesk/rentdesk/pkg/observability"
)

func TestSafeGoRunsTask(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, nil)
	done := make(chan struct{})

	SafeGo(context.Background(), logger, time.Second, "test task", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestSafeGoRecoversPanic(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, nil)
	ran := make(chan struct{})

	assert.NotPanics(t, func() {
		SafeGo(context.Background(), logger, time.Second, "panicky task", func(ctx context.Context) error {
			close(ran)
			panic("boom")
		})
		<-ran
		// Give the deferred recover a moment to fire.
		time.Sleep(50 * time.Millisecond)
	})
}

func TestSafeGoSurvivesCancelledParent(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, nil)
	parentCtx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	SafeGo(parentCtx, logger, time.Second, "detached task", func(ctx context.Context) error {
		done <- ctx.Err()
		return errors.New("reported")
	})

	select {
	case err := <-done:
		// The task context is detached from the cancelled parent.
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}
