package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClampsRate(t *testing.T) {
	if step := New(0).Step(); step != time.Second {
		t.Errorf("Expected 1s step for a zero rate, got %v", step)
	}
	if step := New(50).Step(); step != 20*time.Millisecond {
		t.Errorf("Expected 20ms step at 50 Hz, got %v", step)
	}
}

func TestAdvanceAccumulates(t *testing.T) {
	l := New(50)

	if due := l.Advance(15 * time.Millisecond); due != 0 {
		t.Errorf("Expected no tick before a full step, got %d", due)
	}
	if due := l.Advance(10 * time.Millisecond); due != 1 {
		t.Errorf("Expected one tick after 25ms, got %d", due)
	}
	if due := l.Advance(35 * time.Millisecond); due != 2 {
		t.Errorf("Expected leftover time to carry over, got %d", due)
	}
	if due := l.Advance(-time.Second); due != 0 {
		t.Errorf("Expected negative elapsed time to be ignored, got %d", due)
	}
}

func TestAdvanceDropsBacklog(t *testing.T) {
	l := New(50)

	due := l.Advance(time.Second)
	if due != DefaultMaxCatchUp {
		t.Errorf("Expected catch-up capped at %d, got %d", DefaultMaxCatchUp, due)
	}
	if l.Dropped() != uint64(50-DefaultMaxCatchUp) {
		t.Errorf("Expected %d dropped ticks, got %d", 50-DefaultMaxCatchUp, l.Dropped())
	}
	if due := l.Advance(0); due != 0 {
		t.Errorf("Expected dropped backlog not to be replayed, got %d", due)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	l := New(200)
	ctx, cancel := context.WithCancel(context.Background())

	var ticks atomic.Int64
	done := make(chan struct{})
	go func() {
		l.Run(ctx, func() bool {
			ticks.Add(1)
			return true
		})
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected Run to return after cancel")
	}
	if ticks.Load() == 0 {
		t.Error("Expected at least one tick")
	}
}

func TestRunStopsWhenStepDeclines(t *testing.T) {
	l := New(200)

	var ticks atomic.Int64
	done := make(chan struct{})
	go func() {
		l.Run(context.Background(), func() bool {
			return ticks.Add(1) < 3
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Run to return once step declines")
	}
	if ticks.Load() != 3 {
		t.Errorf("Expected 3 ticks, got %d", ticks.Load())
	}
}
