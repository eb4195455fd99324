package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmit_RunsJobAndReturnsItsError(t *testing.T) {
	p := New(2, 4)
	defer p.Close()

	err := p.Submit(context.Background(), func(context.Context) error { return nil })
	require.NoError(t, err)

	wantErr := errors.New("boom")
	err = p.Submit(context.Background(), func(context.Context) error { return wantErr })
	require.Equal(t, wantErr, err)
}

func TestSubmit_RunsConcurrently(t *testing.T) {
	p := New(4, 8)
	defer p.Close()

	var counter int64
	done := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_ = p.Submit(context.Background(), func(context.Context) error {
				atomic.AddInt64(&counter, 1)
				time.Sleep(10 * time.Millisecond)
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	require.Equal(t, int64(4), atomic.LoadInt64(&counter))
}

func TestTrySubmit_SaturatedQueueReturnsErrPoolSaturated(t *testing.T) {
	p := New(1, 0)
	defer p.Close()

	block := make(chan struct{})
	go func() {
		_ = p.Submit(context.Background(), func(context.Context) error {
			<-block
			return nil
		})
	}()

	// give the blocking job time to occupy the single worker
	time.Sleep(20 * time.Millisecond)

	err := p.TrySubmit(context.Background(), func(context.Context) error { return nil }, nil)
	require.ErrorIs(t, err, ErrPoolSaturated)

	close(block)
}

func TestSubmit_RespectsContextCancellation(t *testing.T) {
	// Queue capacity 1 so the second submission enqueues successfully (it
	// isn't rejected for saturation) and then waits on its result past its
	// own deadline while the single worker is still busy on the first job.
	p := New(1, 1)
	defer p.Close()

	block := make(chan struct{})
	go func() {
		_ = p.Submit(context.Background(), func(context.Context) error {
			<-block
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond)
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := p.Submit(ctx, func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTrySubmit_InvokesCallbackAsynchronously(t *testing.T) {
	p := New(1, 4)
	defer p.Close()

	resultCh := make(chan error, 1)
	err := p.TrySubmit(context.Background(), func(context.Context) error { return nil }, func(e error) {
		resultCh <- e
	})
	require.NoError(t, err)

	select {
	case e := <-resultCh:
		require.NoError(t, e)
	case <-time.After(time.Second):
		t.Fatal("callback never invoked")
	}
}
