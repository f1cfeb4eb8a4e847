package archiver

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoopSweepsUntilCancelled(t *testing.T) {
	a := &Archiver{}
	ctx, cancel := context.WithCancel(context.Background())

	var sweeps atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.loop(ctx, 5*time.Millisecond, func(context.Context) {
			sweeps.Add(1)
		})
	}()

	deadline := time.After(2 * time.Second)
	for sweeps.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweep never ran")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}
