package service

import (
	"context"
	"errors"
	"testing"

	"csvhouse/internal/config"
)

func TestRunJob_RejectsOverlap(t *testing.T) {
	svc := NewPipelineService(config.Default(), nil, &MockEmitter{})

	if ok, _ := svc.running.TryLock("data_table", "held"); !ok {
		t.Fatal("expected lock to succeed")
	}
	defer svc.running.Unlock("data_table")

	_, err := svc.Run(context.Background(), CommandReport)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}
