package api

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestPhaseSimpleScenario(t *testing.T) {
	e := NewTestEnv(t)
	defer e.Close()
	ctx := context.Background()
	{
		phase, err := e.Client(0).ObservePhase(ctx)
		if err != nil {
			t.Fatal("Error:", err)
		}
		e.Check(phase, `{"open": false, "remaining": 0}`)
	}
	_, err := e.Socket.OpenPhase(ctx, OpenPhaseForm{
		Deadline: time.Now().Add(-time.Minute).Unix(),
	})
	expectStatus(t, err, http.StatusBadRequest)
	deadline := time.Now().Add(time.Hour).Unix()
	opened, err := e.Socket.OpenPhase(ctx, OpenPhaseForm{Deadline: deadline})
	if err != nil {
		t.Fatal("Error:", err)
	}
	if !opened.Open || opened.ID == 0 || opened.Deadline != deadline {
		t.Fatalf("Invalid phase: %v", opened)
	}
	if opened.Remaining <= 0 || opened.Remaining > 3600 {
		t.Fatalf("Invalid remaining time: %d", opened.Remaining)
	}
	_, err = e.Socket.OpenPhase(ctx, OpenPhaseForm{Deadline: deadline})
	expectStatus(t, err, http.StatusConflict)
	{
		phase, err := e.Client(testReviewer).ObservePhase(ctx)
		if err != nil {
			t.Fatal("Error:", err)
		}
		if phase.ID != opened.ID || !phase.Open {
			t.Fatalf("Invalid phase: %v", phase)
		}
	}
	closed, err := e.Socket.ClosePhase(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if closed.ID != opened.ID || closed.Open || closed.Remaining != 0 {
		t.Fatalf("Invalid phase: %v", closed)
	}
	_, err = e.Socket.ClosePhase(ctx)
	expectStatus(t, err, http.StatusConflict)
	// Closed phase is never reopened, but new instance can be opened.
	reopened, err := e.Socket.OpenPhase(ctx, OpenPhaseForm{Deadline: deadline})
	if err != nil {
		t.Fatal("Error:", err)
	}
	if reopened.ID == opened.ID || !reopened.Open {
		t.Fatalf("Invalid phase: %v", reopened)
	}
}

func TestPhaseNotAvailableOnPublicAPI(t *testing.T) {
	e := NewTestEnv(t)
	defer e.Close()
	client := e.Client(testReviewer)
	_, err := client.OpenPhase(context.Background(), OpenPhaseForm{
		Deadline: time.Now().Add(time.Hour).Unix(),
	})
	if err == nil {
		t.Fatal("Expected error")
	}
}
