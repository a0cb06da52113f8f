package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMachineStatusValid(t *testing.T) {
	for _, status := range MachineStatuses() {
		if !status.Valid() {
			t.Fatalf("canonical status %q reported invalid", status)
		}
	}
	for _, status := range []MachineStatus{"", "RUNNING", "broken"} {
		if status.Valid() {
			t.Fatalf("status %q reported valid", status)
		}
	}
}

func TestMachineStatusesOrder(t *testing.T) {
	want := []MachineStatus{StatusRunning, StatusStopped, StatusMaintenance, StatusError}
	got := MachineStatuses()
	if len(got) != len(want) {
		t.Fatalf("expected %d statuses, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("status %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError{Entity: EntityMachine, ID: "m1"}
	if !strings.Contains(err.Error(), "machine") || !strings.Contains(err.Error(), "m1") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound(NotFoundError) = false")
	}
	wrapped := fmt.Errorf("loading state: %w", err)
	if !IsNotFound(wrapped) {
		t.Fatalf("IsNotFound must unwrap")
	}
	if IsNotFound(errors.New("machine m1 not found")) {
		t.Fatalf("IsNotFound matched a plain error")
	}
	if IsNotFound(nil) {
		t.Fatalf("IsNotFound(nil) = true")
	}
}
