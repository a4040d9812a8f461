package managers

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestPhaseController(t *testing.T) {
	env := testSetup(t)
	ctx := context.Background()
	if env.phases.IsOpen() {
		t.Fatal("Phase should not be open")
	}
	if status := env.phases.Status(); status.Open || status.PhaseID != 0 {
		t.Fatalf("Unexpected status: %+v", status)
	}
	if _, err := env.phases.OpenPhase(ctx, env.clock.Now()); err != ErrInvalidDeadline {
		t.Fatalf("Expected %v, got %v", ErrInvalidDeadline, err)
	}
	phase, err := env.phases.OpenPhase(ctx, env.clock.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatal("Error:", err)
	}
	if phase.Salt == "" {
		t.Fatal("Phase should have salt")
	}
	if !env.phases.IsOpen() {
		t.Fatal("Phase should be open")
	}
	if _, err := env.phases.OpenPhase(ctx, env.clock.Now().Add(time.Hour)); err != ErrPhaseOpen {
		t.Fatalf("Expected %v, got %v", ErrPhaseOpen, err)
	}
	env.clock.Add(4 * time.Minute)
	status := env.phases.Status()
	if !status.Open || status.Remaining != 6*time.Minute {
		t.Fatalf("Unexpected status: %+v", status)
	}
	env.clock.Add(6 * time.Minute)
	if env.phases.IsOpen() {
		t.Fatal("Phase should be closed after deadline")
	}
	status = env.phases.Status()
	if status.Open || status.Remaining != 0 || status.PhaseID != phase.ID {
		t.Fatalf("Unexpected status: %+v", status)
	}
	env.clock.Add(time.Hour)
	if env.phases.IsOpen() {
		t.Fatal("Phase should stay closed")
	}
	next, err := env.phases.OpenPhase(ctx, env.clock.Now().Add(time.Hour))
	if err != nil {
		t.Fatal("Error:", err)
	}
	if next.ID == phase.ID || next.Salt == phase.Salt {
		t.Fatalf("New phase instance expected: %+v", next)
	}
}

func TestPhaseControllerClose(t *testing.T) {
	env := testSetup(t)
	ctx := context.Background()
	if err := env.phases.ClosePhase(ctx); err != ErrPhaseClosed {
		t.Fatalf("Expected %v, got %v", ErrPhaseClosed, err)
	}
	env.openPhase(t)
	if err := env.phases.ClosePhase(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	if env.phases.IsOpen() {
		t.Fatal("Phase should be closed")
	}
	if err := env.phases.ClosePhase(ctx); err != ErrPhaseClosed {
		t.Fatalf("Expected %v, got %v", ErrPhaseClosed, err)
	}
	phase, err := env.core.Phases.Latest(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if phase.Deadline != env.clock.Now().Unix() {
		t.Fatalf("Expected %d, got %d", env.clock.Now().Unix(), phase.Deadline)
	}
}

func TestPhaseControllerSync(t *testing.T) {
	env := testSetup(t)
	ctx := context.Background()
	env.openPhase(t)
	phases := NewPhaseController(env.core)
	phases.now = env.clock.Now
	if phases.IsOpen() {
		t.Fatal("Phase should not be loaded yet")
	}
	if err := phases.Sync(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	if !phases.IsOpen() {
		t.Fatal("Phase should be open after sync")
	}
	expected, _ := env.phases.Current()
	if current, _ := phases.Current(); current != expected {
		t.Fatalf("Expected %+v, got %+v", expected, current)
	}
}

func TestPhaseControllerWatch(t *testing.T) {
	env := testSetup(t)
	env.openPhase(t)
	phases := NewPhaseController(env.core)
	phases.now = env.clock.Now
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		phases.Watch(ctx, time.Millisecond)
	}()
	deadline := time.Now().Add(time.Second)
	for !phases.IsOpen() {
		if time.Now().After(deadline) {
			t.Fatal("Phase should be synced by watcher")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
}

func TestPhaseControllerSyncKeepsNewer(t *testing.T) {
	env := testSetup(t)
	ctx := context.Background()
	env.openPhase(t)
	stale, _ := env.phases.Current()
	if err := env.phases.ClosePhase(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	env.openPhase(t)
	current, _ := env.phases.Current()
	if current.ID <= stale.ID {
		t.Fatalf("Expected new phase, got %+v", current)
	}
	// Emulate sync that read phases before new one was committed.
	if _, err := env.core.DB.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM review_phase WHERE id = %d", current.ID,
	)); err != nil {
		t.Fatal("Error:", err)
	}
	if err := env.phases.Sync(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	if phase, _ := env.phases.Current(); phase.ID != current.ID {
		t.Fatalf("Expected phase %d, got %d", current.ID, phase.ID)
	}
	if !env.phases.IsOpen() {
		t.Fatal("Phase should stay open")
	}
}
