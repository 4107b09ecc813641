package service

import (
	"context"
	"testing"
	"time"
)

// ─────────────────────────────────────────────────────────────
// RunGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunGuard_TryLock(t *testing.T) {
	var g runGuard

	if ok, _ := g.TryLock("data_table", "run-1"); !ok {
		t.Fatal("expected first TryLock to succeed")
	}
	ok, holder := g.TryLock("data_table", "run-2")
	if ok {
		t.Fatal("expected second TryLock for same table to fail")
	}
	if holder != "run-1" {
		t.Fatalf("expected holder run-1, got %q", holder)
	}
	if ok, _ := g.TryLock("other_table", "run-3"); !ok {
		t.Fatal("expected TryLock for different table to succeed")
	}
	if g.Running() != 2 {
		t.Fatalf("expected 2 running, got %d", g.Running())
	}
	g.Unlock("data_table")
	g.Unlock("other_table")

	if ok, _ := g.TryLock("data_table", "run-4"); !ok {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("data_table")
}

func TestRunGuard_WaitAll(t *testing.T) {
	var g runGuard

	if ok, _ := g.TryLock("data_table", "run-a"); !ok {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("data_table")
	}()

	select {
	case <-done:
		// success
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}
