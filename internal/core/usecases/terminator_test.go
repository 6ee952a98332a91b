package usecases_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/geoanchor/internal/core/usecases"
)

func TestTerminator_TriggersOnce(t *testing.T) {
	var calls atomic.Int32
	done := make(chan string, 1)
	term := usecases.NewTerminator(10*time.Millisecond, func(reason string) {
		calls.Add(1)
		done <- reason
	}, nil)

	var wg sync.WaitGroup
	var won atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if term.Trigger("first") {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	if won.Load() != 1 {
		t.Fatalf("expected exactly one winning trigger, got %d", won.Load())
	}
	if !term.Terminating() {
		t.Fatal("expected terminating")
	}

	select {
	case reason := <-done:
		if reason != "first" {
			t.Errorf("expected reason 'first', got %q", reason)
		}
	case <-time.After(time.Second):
		t.Fatal("quit was not called")
	}

	if term.Trigger("second") {
		t.Error("trigger after termination must be ignored")
	}
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("expected 1 quit call, got %d", calls.Load())
	}
	if term.Reason() != "first" {
		t.Errorf("expected reason to stay 'first', got %q", term.Reason())
	}
}

func TestTerminator_WaitsForDelay(t *testing.T) {
	done := make(chan struct{})
	term := usecases.NewTerminator(50*time.Millisecond, func(string) { close(done) }, nil)

	start := time.Now()
	term.Trigger("bye")

	select {
	case <-done:
		if time.Since(start) < 50*time.Millisecond {
			t.Error("quit called before the display delay elapsed")
		}
	case <-time.After(time.Second):
		t.Fatal("quit was not called")
	}
}
