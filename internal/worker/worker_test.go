package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/shaiso/webprobe/internal/mq"
	"github.com/shaiso/webprobe/internal/repo"
)

// fakeScheduler считает вызовы и отдаёт заранее заданное число сценариев.
type fakeScheduler struct {
	calls   atomic.Int32
	pending atomic.Int32
	err     error
}

func (f *fakeScheduler) ProcessDue(ctx context.Context) (int, error) {
	f.calls.Inc()
	if f.err != nil {
		return 0, f.err
	}
	n := f.pending.Swap(0)
	return int(n), nil
}

type fakeRequeuer struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (f *fakeRequeuer) RequeueNow(ctx context.Context, id int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, id)
	return nil
}

func checkNow(id any) *mq.Delivery {
	return &mq.Delivery{Message: mq.Message{
		Type:    mq.MessageTypeCheckNow,
		Payload: map[string]any{"scenario_id": id, "requested_by": "test"},
	}}
}

func TestPool_ProcessesOnStartAndTick(t *testing.T) {
	sched := &fakeScheduler{}
	sched.pending.Store(3)

	p := New(Config{Scheduler: sched, Workers: 2, PollInterval: 10 * time.Millisecond})
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	require.Eventually(t, func() bool {
		return p.Stats().Processed == 3
	}, time.Second, 5*time.Millisecond)

	// таймер продолжает опрашивать очередь
	before := sched.calls.Load()
	require.Eventually(t, func() bool {
		return sched.calls.Load() > before+2
	}, time.Second, 5*time.Millisecond)
}

func TestPool_WakeSkipsTimer(t *testing.T) {
	sched := &fakeScheduler{}
	p := New(Config{Scheduler: sched, Workers: 1, PollInterval: time.Hour})
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	require.Eventually(t, func() bool { return sched.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	sched.pending.Store(2)
	p.Wake()

	require.Eventually(t, func() bool {
		return p.Stats().Processed == 2
	}, time.Second, 5*time.Millisecond)
}

func TestPool_SchedulerErrorKeepsRunning(t *testing.T) {
	sched := &fakeScheduler{err: errors.New("db down")}
	p := New(Config{Scheduler: sched, Workers: 1, PollInterval: 5 * time.Millisecond})
	require.NoError(t, p.Start(context.Background()))

	require.Eventually(t, func() bool { return sched.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	p.Stop()
	assert.True(t, p.IsStopped())
	assert.Equal(t, int32(0), p.Stats().Busy)
}

func TestPool_Lifecycle(t *testing.T) {
	assert.ErrorIs(t, New(Config{}).Start(context.Background()), ErrNoScheduler)

	p := New(Config{Scheduler: &fakeScheduler{}, PollInterval: time.Hour})
	require.NoError(t, p.Start(context.Background()))
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)

	p.Stop()
	p.Stop()
	assert.ErrorIs(t, p.Start(context.Background()), ErrWorkerStopped)
}

func TestPool_StopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sched := &fakeScheduler{}
	p := New(Config{Scheduler: sched, Workers: 3, PollInterval: time.Hour})
	require.NoError(t, p.Start(ctx))

	cancel()

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool did not stop")
	}
}

func TestHandleCheckNow(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		id        any
		storeErr  error
		wantErr   bool
		wantIDs   []int64
		wantWoken bool
	}{
		{name: "requeued", id: 42, wantIDs: []int64{42}, wantWoken: true},
		{name: "unknown scenario is acked", id: 7, storeErr: fmt.Errorf("requeue: %w", repo.ErrNotFound)},
		{name: "store error is retried", id: 7, storeErr: errors.New("db down"), wantErr: true},
		{name: "malformed payload", id: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requeuer := &fakeRequeuer{err: tt.storeErr}
			p := New(Config{
				Scheduler: &fakeScheduler{},
				Requeuer:  requeuer,
				Workers:   1,
				Clock:     func() time.Time { return now },
			})

			err := p.handleCheckNow(context.Background(), checkNow(tt.id))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantIDs, requeuer.ids)
			assert.Equal(t, tt.wantWoken, len(p.wake) == 1)
		})
	}
}
