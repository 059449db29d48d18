package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_BurstDeliversLastValue(t *testing.T) {
	var mu sync.Mutex
	var got []string
	fired := make(chan struct{}, 4)

	d := NewDebouncer(30*time.Millisecond, func(q string) {
		mu.Lock()
		got = append(got, q)
		mu.Unlock()
		fired <- struct{}{}
	})

	for _, q := range []string{"a", "ap", "app", "appl"} {
		d.Call(q)
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("debounced call never fired")
	}
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"appl"}, got)
}

func TestDebouncer_SeparateBursts(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(10*time.Millisecond, func(int) { calls.Add(1) })

	d.Call(1)
	time.Sleep(50 * time.Millisecond)
	d.Call(2)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(2), calls.Load())
}

func TestDebouncer_Stop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func(int) { calls.Add(1) })

	d.Call(1)
	d.Stop()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(0), calls.Load())
}

func TestPoller_TicksUntilStopped(t *testing.T) {
	var ticks atomic.Int32
	p := NewPoller(10*time.Millisecond, func(context.Context) { ticks.Add(1) })

	p.Start(context.Background())
	p.Start(context.Background())
	assert.True(t, p.Running())

	assert.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, 5*time.Millisecond)

	p.Stop()
	p.Stop()
	assert.False(t, p.Running())

	after := ticks.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}

func TestPoller_ParentContextCancel(t *testing.T) {
	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(10*time.Millisecond, func(context.Context) { ticks.Add(1) })

	p.Start(ctx)
	cancel()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, int32(0), ticks.Load())
	p.Stop()
}
