package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUploadLimiter_Defaults(t *testing.T) {
	tests := []struct {
		name          string
		maxConcurrent int
		maxWait       time.Duration
		wantSlots     int
		wantWait      time.Duration
	}{
		{name: "configured", maxConcurrent: 3, maxWait: time.Second, wantSlots: 3, wantWait: time.Second},
		{name: "zero", wantSlots: DefaultMaxConcurrentImports, wantWait: DefaultMaxWaitTime},
		{name: "negative", maxConcurrent: -1, maxWait: -time.Second, wantSlots: DefaultMaxConcurrentImports, wantWait: DefaultMaxWaitTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewUploadLimiter(tt.maxConcurrent, tt.maxWait)
			assert.Equal(t, tt.wantSlots, cap(l.slots))
			assert.Equal(t, tt.wantWait, l.maxWait)
			assert.Equal(t, UploadLimiterStatus{Available: tt.wantSlots, MaxConcurrent: tt.wantSlots}, l.Status())
		})
	}
}

func TestUploadLimiter_SlotsTrackChannel(t *testing.T) {
	l := NewUploadLimiter(2, time.Second)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 1, len(l.slots))
	assert.Equal(t, UploadLimiterStatus{Active: 1, Available: 1, MaxConcurrent: 2}, l.Status())

	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 2, l.ActiveCount())
	assert.Equal(t, 0, l.Status().Available)

	l.Release()
	l.Release()
	assert.Equal(t, UploadLimiterStatus{Available: 2, MaxConcurrent: 2}, l.Status())
}

func TestUploadLimiter_AcquireWaitsForRelease(t *testing.T) {
	l := NewUploadLimiter(1, time.Second)
	require.NoError(t, l.Acquire(context.Background()))

	acquired := make(chan error, 1)
	go func() { acquired <- l.Acquire(context.Background()) }()

	select {
	case err := <-acquired:
		t.Fatalf("Acquire returned %v while the only slot was held", err)
	case <-time.After(20 * time.Millisecond):
	}

	l.Release()
	require.NoError(t, <-acquired)
	assert.Equal(t, 1, l.ActiveCount())
}

func TestUploadLimiter_AcquireFails(t *testing.T) {
	tests := []struct {
		name    string
		maxWait time.Duration
		ctx     func() (context.Context, context.CancelFunc)
		wantErr error
	}{
		{
			name:    "wait period elapses",
			maxWait: 20 * time.Millisecond,
			ctx:     func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
			wantErr: ErrTooManyImports,
		},
		{
			name:    "caller deadline first",
			maxWait: time.Minute,
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 20*time.Millisecond)
			},
			wantErr: context.DeadlineExceeded,
		},
		{
			name:    "caller cancelled",
			maxWait: time.Minute,
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				time.AfterFunc(20*time.Millisecond, cancel)
				return ctx, cancel
			},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewUploadLimiter(1, tt.maxWait)
			require.NoError(t, l.Acquire(context.Background()))
			defer l.Release()

			ctx, cancel := tt.ctx()
			defer cancel()

			err := l.Acquire(ctx)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 1, l.ActiveCount(), "a failed Acquire takes no slot")
		})
	}
}

func TestUploadLimiter_NeverExceedsCapacity(t *testing.T) {
	const slots, workers = 3, 12
	l := NewUploadLimiter(slots, 5*time.Second)

	var active, peak atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Error(err)
				return
			}
			defer l.Release()

			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(slots))
	assert.Equal(t, 0, l.ActiveCount())
}

func TestUploadLimiter_WaitForDrain(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		l := NewUploadLimiter(1, time.Second)
		assert.NoError(t, l.WaitForDrain(context.Background()))
	})

	t.Run("slot still held", func(t *testing.T) {
		l := NewUploadLimiter(1, time.Second)
		require.NoError(t, l.Acquire(context.Background()))
		defer l.Release()

		ctx, cancel := context.WithTimeout(context.Background(), 3*drainPollInterval)
		defer cancel()
		assert.ErrorIs(t, l.WaitForDrain(ctx), context.DeadlineExceeded)
	})

	t.Run("released while waiting", func(t *testing.T) {
		l := NewUploadLimiter(2, time.Second)
		require.NoError(t, l.Acquire(context.Background()))
		require.NoError(t, l.Acquire(context.Background()))

		time.AfterFunc(drainPollInterval, func() {
			l.Release()
			l.Release()
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, l.WaitForDrain(ctx))
		assert.Equal(t, 0, l.ActiveCount())
	})
}
