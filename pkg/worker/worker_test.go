package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerManager_ProcessesJobs(t *testing.T) {
	w := NewWorkerManager(10, 3)
	var sum int64
	done := make(chan struct{}, 10)
	w.SetWorker(func(_ int, job interface{}) {
		atomic.AddInt64(&sum, int64(job.(int)))
		done <- struct{}{}
	})

	errCh := make(chan error, 1)
	go func() { errCh <- w.Start() }()

	for i := 1; i <= 4; i++ {
		require.NoError(t, w.Enqueue(context.Background(), i))
	}
	for i := 0; i < 4; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("job was not processed")
		}
	}
	assert.Equal(t, int64(10), atomic.LoadInt64(&sum))

	w.Exit()
	w.Exit()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Exit")
	}
}

func TestWorkerManager_EnqueueAfterExit(t *testing.T) {
	w := NewWorkerManager(0, 1)
	w.Exit()
	err := w.Enqueue(context.Background(), 1)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestWorkerManager_EnqueueContextCancelled(t *testing.T) {
	w := NewWorkerManager(0, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Enqueue(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkerManager_StartWithoutHandler(t *testing.T) {
	w := NewWorkerManager(1, 1)
	assert.Error(t, w.Start())
}
