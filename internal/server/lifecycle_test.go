package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type blockingService struct {
	name    string
	started atomic.Bool
	stopped atomic.Bool
	done    chan struct{}
	once    sync.Once
	order   *[]string
	mu      *sync.Mutex
}

func newBlocking(name string, order *[]string, mu *sync.Mutex) *blockingService {
	return &blockingService{name: name, done: make(chan struct{}), order: order, mu: mu}
}

func (b *blockingService) Start(ctx context.Context) error {
	b.started.Store(true)
	select {
	case <-ctx.Done():
	case <-b.done:
	}
	return nil
}

func (b *blockingService) Stop(context.Context) error {
	b.stopped.Store(true)
	b.once.Do(func() { close(b.done) })
	b.mu.Lock()
	*b.order = append(*b.order, b.name)
	b.mu.Unlock()
	return nil
}

func TestLifecycle_StopsInReverseOrder(t *testing.T) {
	var (
		order []string
		mu    sync.Mutex
	)
	lc := NewLifecycle(zaptest.NewLogger(t))
	first := newBlocking("first", &order, &mu)
	second := newBlocking("second", &order, &mu)
	lc.Add("first", first)
	lc.Add("second", second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	require.Eventually(t, func() bool { return first.started.Load() && second.started.Load() },
		2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestLifecycle_ServiceFailureStopsEverything(t *testing.T) {
	var (
		order []string
		mu    sync.Mutex
	)
	lc := NewLifecycle(zaptest.NewLogger(t))
	healthy := newBlocking("healthy", &order, &mu)
	boom := errors.New("listener closed")
	lc.Add("healthy", healthy)
	lc.Add("broken", &FuncService{StartFn: func(context.Context) error { return boom }})

	err := lc.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, healthy.stopped.Load())
}

func TestLifecycle_StopErrorsAreReturned(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	lc.SetShutdownTimeout(time.Second)
	stopErr := errors.New("flush failed")
	lc.Add("svc", &FuncService{
		StartFn: func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() },
		StopFn:  func(context.Context) error { return stopErr },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, lc.Run(ctx), stopErr)
}

func TestFuncService_NilStop(t *testing.T) {
	svc := &FuncService{StartFn: func(context.Context) error { return nil }}
	assert.NoError(t, svc.Start(context.Background()))
	assert.NoError(t, svc.Stop(context.Background()))
}
